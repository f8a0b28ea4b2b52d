package dwarfline

// Standard line-number program opcodes (DW_LNS_*).
const (
	lnsCopy            = 0x01
	lnsAdvancePC       = 0x02
	lnsAdvanceLine     = 0x03
	lnsSetFile         = 0x04
	lnsSetColumn       = 0x05
	lnsNegateStmt      = 0x06
	lnsSetBasicBlock   = 0x07
	lnsConstAddPC      = 0x08
	lnsFixedAdvancePC  = 0x09
	lnsSetPrologueEnd  = 0x0a
	lnsSetEpilogueBgn  = 0x0b
	lnsSetISA          = 0x0c
)

// Extended line-number program opcodes (DW_LNE_*).
const (
	lneEndSequence     = 0x01
	lneSetAddress      = 0x02
	lneDefineFile      = 0x03
	lneSetDiscriminator = 0x04
)

// DWARF attribute/form/tag codes used by the minimal .debug_info walk
// and by the v5 header's entry-format tables.
const (
	dwAtCompDir        = 0x1b
	dwAtStrOffsetsBase = 0x72

	dwFormAddr         = 0x01
	dwFormBlock2       = 0x03
	dwFormBlock4       = 0x04
	dwFormData2        = 0x05
	dwFormData4        = 0x06
	dwFormData8        = 0x07
	dwFormString       = 0x08
	dwFormBlock        = 0x09
	dwFormBlock1       = 0x0a
	dwFormData1        = 0x0b
	dwFormFlag         = 0x0c
	dwFormSdata        = 0x0d
	dwFormStrp         = 0x0e
	dwFormUdata        = 0x0f
	dwFormRefAddr      = 0x10
	dwFormRef1         = 0x11
	dwFormRef2         = 0x12
	dwFormRef4         = 0x13
	dwFormRef8         = 0x14
	dwFormRefUdata     = 0x15
	dwFormIndirect     = 0x16
	dwFormSecOffset    = 0x17
	dwFormExprloc      = 0x18
	dwFormFlagPresent  = 0x19
	dwFormStrx         = 0x1a
	dwFormAddrx        = 0x1b
	dwFormRefSup4      = 0x1c
	dwFormStrpSup      = 0x1d
	dwFormData16       = 0x1e
	dwFormLineStrp     = 0x1f
	dwFormRefSig8      = 0x20
	dwFormImplicitConst = 0x21
	dwFormLoclistx     = 0x22
	dwFormRnglistx     = 0x23
	dwFormRefSup8      = 0x24
	dwFormStrx1        = 0x25
	dwFormStrx2        = 0x26
	dwFormStrx3        = 0x27
	dwFormStrx4        = 0x28
	dwFormAddrx1       = 0x29
	dwFormAddrx2       = 0x2a
	dwFormAddrx3       = 0x2b
	dwFormAddrx4       = 0x2c
)

// DW_LNCT_* content types for v5 directory/file entry formats.
const (
	lnctPath          = 0x1
	lnctDirectoryIdx  = 0x2
	lnctTimestamp     = 0x3
	lnctSize          = 0x4
	lnctMD5           = 0x5
)
