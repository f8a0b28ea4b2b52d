// Package objectfile resolves a single OSO-referenced compilation
// unit (a ".o" file, or a member of a ranlib archive) into a
// (address, function) -> source line lookup. Grounded on
// original_source/src/parser/file/macho/objectFile.c.
package objectfile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mhahnFr/CallstackLibrary/internal/arfmt"
	"github.com/mhahnFr/CallstackLibrary/internal/dwarfline"
	"github.com/mhahnFr/CallstackLibrary/internal/log"
	"github.com/mhahnFr/CallstackLibrary/internal/machofile"
	"github.com/mhahnFr/CallstackLibrary/internal/pathutil"
)

var logger = log.Logger("objectfile")

// Function is one of this object file's own symbols, keyed by
// linked name the way the enclosing image's stabs named it.
type Function struct {
	StartAddress uint64
	Length       uint64
	LinkedName   string
}

// Resolver lazily parses one compilation unit's object file (or dSYM
// DWARF bundle) and answers debug-info lookups against it.
type Resolver struct {
	// Name is either a plain path, or "archive.a(member.o)" for an
	// archive member, matching machofile.ObjectFileStab.Name.
	Name         string
	Directory    string
	SourceFile   string
	ModTime      int64
	IsDsymBundle bool

	parsed    bool
	ownFuncs  []Function
	rows      []dwarfline.Row
	uuid      [16]byte
	hasUUID   bool
	mainCache string
}

// New constructs a Resolver for one stab-recorded object file.
func New(stab machofile.ObjectFileStab, isDsymBundle bool) *Resolver {
	return &Resolver{
		Name:         stab.Name,
		Directory:    stab.Directory,
		SourceFile:   stab.SourceFile,
		ModTime:      stab.ModTime,
		IsDsymBundle: isDsymBundle,
	}
}

// splitArchiveMember splits "archive.a(member.o)" into its two parts,
// or returns ok=false for a plain path.
func splitArchiveMember(name string) (archive, member string, ok bool) {
	open := strings.LastIndex(name, "(")
	if open == -1 || !strings.HasSuffix(name, ")") {
		return "", "", false
	}
	return name[:open], name[open+1 : len(name)-1], true
}

func (r *Resolver) readBytes() ([]byte, int64, error) {
	if archive, member, isMember := splitArchiveMember(r.Name); isMember {
		info, err := os.Stat(archive)
		if err != nil {
			return nil, 0, err
		}
		data, err := os.ReadFile(archive)
		if err != nil {
			return nil, 0, err
		}
		var found []byte
		err = arfmt.Parse(data, archive, func(m arfmt.Member) {
			if found == nil && strings.HasSuffix(m.Name, "("+member+")") {
				found = m.Data
			}
		})
		if err != nil {
			return nil, 0, err
		}
		if found == nil {
			return nil, 0, fmt.Errorf("objectfile: member %q not found in %s", member, archive)
		}
		return found, info.ModTime().Unix(), nil
	}

	info, err := os.Stat(r.Name)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(r.Name)
	if err != nil {
		return nil, 0, err
	}
	return data, info.ModTime().Unix(), nil
}

// ensureParsed performs the lazy, memoized parse. A mismatched mtime
// against the value recorded when the stabs were read means the
// object file was rebuilt since - the lookup is abandoned rather than
// risk returning wrong source info, mirroring objectFile_parse's
// lastModified check.
func (r *Resolver) ensureParsed() bool {
	if r.parsed {
		return len(r.rows) > 0 || len(r.ownFuncs) > 0 || r.hasUUID
	}
	r.parsed = true

	data, mtime, err := r.readBytes()
	if err != nil {
		logger.Debug().Err(err).Str("name", r.Name).Msg("could not read object file")
		return false
	}
	if r.ModTime != 0 && mtime != r.ModTime {
		logger.Debug().Str("name", r.Name).Msg("object file is outdated, skipping")
		return false
	}

	mf, err := machofile.Parse(data, r.Name)
	if err != nil {
		logger.Debug().Err(err).Str("name", r.Name).Msg("failed to parse object file as Mach-O")
		return false
	}
	if mf.HasUUID {
		r.uuid = mf.UUID
		r.hasUUID = true
	}
	for _, fn := range mf.Functions {
		r.ownFuncs = append(r.ownFuncs, Function{fn.StartAddress, fn.Length, fn.LinkedName})
	}
	sort.Slice(r.ownFuncs, func(i, j int) bool { return r.ownFuncs[i].LinkedName < r.ownFuncs[j].LinkedName })

	sections := dwarfline.Sections{
		Line:       mf.DWARF.DebugLine,
		LineStr:    mf.DWARF.DebugLineStr,
		Str:        mf.DWARF.DebugStr,
		Info:       mf.DWARF.DebugInfo,
		Abbrev:     mf.DWARF.DebugAbbrev,
		StrOffsets: mf.DWARF.DebugStrOffsets,
	}
	if len(sections.Line) > 0 {
		err = dwarfline.Parse(sections, machofile.NativeByteOrder(), func(row dwarfline.Row) {
			r.rows = append(r.rows, row)
		})
		if err != nil {
			logger.Debug().Err(err).Str("name", r.Name).Msg("malformed DWARF in object file")
		}
	}
	sort.Slice(r.rows, func(i, j int) bool { return r.rows[i].Address < r.rows[j].Address })

	return true
}

func (r *Resolver) findOwnFunction(name string) (Function, bool) {
	idx := sort.Search(len(r.ownFuncs), func(i int) bool { return r.ownFuncs[i].LinkedName >= name })
	if idx < len(r.ownFuncs) && r.ownFuncs[idx].LinkedName == name {
		return r.ownFuncs[idx], true
	}
	return Function{}, false
}

// SourceInfo is the resolved (line, column, file) triple for one
// address.
type SourceInfo struct {
	Line, Column     uint64
	FileName         string
	FileNameRelative string
	FileNameAbsolute string
	// Timestamp and Size are the DWARF-recorded mtime/size of the
	// source file, used to detect an edited-since-build source.
	Timestamp, Size uint64
}

// DebugInfo resolves address (as seen in the owning function fn) to a
// source location, mirroring objectFile_getDebugInfo's two address
// spaces: for a dSYM bundle the address is already in the bundle's
// own coordinate space; for a plain .o file it must be translated via
// this resolver's own copy of the symbol, since the linker may have
// relocated the function independently within the object file.
func (r *Resolver) DebugInfo(address uint64, fn machofile.Function) (SourceInfo, bool) {
	if !r.ensureParsed() {
		return SourceInfo{}, false
	}

	var lineAddress, functionBegin uint64
	if r.IsDsymBundle {
		lineAddress = address
		functionBegin = fn.StartAddress
	} else {
		own, ok := r.findOwnFunction(fn.LinkedName)
		if !ok {
			return SourceInfo{}, false
		}
		lineAddress = own.StartAddress + address - fn.StartAddress
		functionBegin = own.StartAddress
	}

	idx := sort.Search(len(r.rows), func(i int) bool { return r.rows[i].Address > lineAddress }) - 1
	if idx < 0 || idx >= len(r.rows) {
		return SourceInfo{}, false
	}
	row := r.rows[idx]
	if row.Address < functionBegin || (fn.Length != 0 && row.Address >= functionBegin+fn.Length) {
		return SourceInfo{}, false
	}

	fileName := row.File.Name
	if fileName == "" {
		fileName = r.sourceFileName()
	}
	return SourceInfo{
		Line:             uint64(row.Line),
		Column:           row.Column,
		FileName:         fileName,
		FileNameRelative: pathutil.Relative(fileName),
		FileNameAbsolute: pathutil.Absolute(fileName),
		Timestamp:        row.File.Timestamp,
		Size:             row.File.Size,
	}, true
}

// sourceFileName builds and caches the fallback "directory+sourceFile"
// full path used when a line-table row carries no own file name.
func (r *Resolver) sourceFileName() string {
	if r.mainCache != "" {
		return r.mainCache
	}
	if r.Directory == "" || r.SourceFile == "" {
		return "<< Unknown >>"
	}
	r.mainCache = pathutil.Join(r.Directory, r.SourceFile)
	return r.mainCache
}

// UUID returns the dSYM/object file's own UUID, parsing lazily.
func (r *Resolver) UUID() ([16]byte, bool) {
	r.ensureParsed()
	return r.uuid, r.hasUUID
}
