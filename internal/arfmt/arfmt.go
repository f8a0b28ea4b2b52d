// Package arfmt parses BSD-style "ar" archives (as produced by ranlib
// for static libraries), extracting each member's bytes and a
// synthesized "archive(member)" name. Grounded on
// original_source/src/parser/file/macho/archive.c.
package arfmt

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	magic      = "!<arch>\n"
	headerSize = 60
	endMagic   = "`\n"
	extFmt1    = "#1/"
)

// Member is one extracted archive member.
type Member struct {
	// Name is synthesized as "archiveName(memberName)", matching
	// macho_archive_constructName.
	Name    string
	ModTime int64
	Data    []byte
}

// IsArchive reports whether data begins with the BSD ar magic.
func IsArchive(data []byte) bool {
	return len(data) >= len(magic) && string(data[:len(magic)]) == magic
}

// Parse walks every member of the archive in data, calling cb for
// each. archiveName is used to build each member's synthetic name.
func Parse(data []byte, archiveName string, cb func(Member)) error {
	if !IsArchive(data) {
		return fmt.Errorf("arfmt: not an archive: %s", archiveName)
	}

	counter := len(magic)
	total := len(data)
	for counter < total {
		if counter+headerSize > total {
			return fmt.Errorf("arfmt: truncated header in %s", archiveName)
		}
		header := data[counter : counter+headerSize]
		counter += headerSize

		if string(header[58:60]) != endMagic {
			return fmt.Errorf("arfmt: bad header terminator in %s", archiveName)
		}

		rawName := string(header[0:16])
		dateField := string(header[16:28])
		sizeField := string(header[48:58])

		size, err := strconv.ParseInt(strings.TrimSpace(sizeField), 10, 64)
		if err != nil {
			return fmt.Errorf("arfmt: bad size field in %s: %w", archiveName, err)
		}
		modTime, _ := strconv.ParseInt(strings.TrimSpace(dateField), 10, 64)

		var name string
		nameLength := int64(0)
		if strings.HasPrefix(rawName, extFmt1) {
			extLen, err := strconv.ParseInt(strings.TrimSpace(rawName[len(extFmt1):]), 10, 64)
			if err != nil {
				return fmt.Errorf("arfmt: bad extended name length in %s: %w", archiveName, err)
			}
			if counter+int(extLen) > total {
				return fmt.Errorf("arfmt: extended name overruns archive %s", archiveName)
			}
			name = string(data[counter : counter+int(extLen)])
			counter += int(extLen)
			nameLength = extLen
		} else {
			name = strings.TrimRight(rawName, " ")
		}

		memberSize := size - nameLength
		if memberSize < 0 || counter+int(memberSize) > total {
			return fmt.Errorf("arfmt: member %q overruns archive %s", name, archiveName)
		}
		memberData := data[counter : counter+int(memberSize)]
		counter += int(memberSize)

		cb(Member{
			Name:    fmt.Sprintf("%s(%s)", archiveName, name),
			ModTime: modTime,
			Data:    memberData,
		})

		for counter < total && data[counter] == '\n' {
			counter++
		}
	}
	return nil
}
