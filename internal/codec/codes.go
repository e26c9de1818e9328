// Package codec holds the closed set of encode/decode pairs for the PLDM
// commands used by base discovery, PDR transfer, and firmware update (spec
// §4.2), generalized from the teacher's per-message wire codecs in
// internal/protocol/session/{eventwire.go,command_report_wire.go}: a flat
// binary layout, little-endian on the wire (spec §6). There is no separate
// validation step before encoding.
package codec

// PLDM type identifiers (spec glossary: "protocol type").
const (
	PldmTypeBase           uint8 = 0x00
	PldmTypePlatform       uint8 = 0x02
	PldmTypeFirmwareUpdate uint8 = 0x05
)

// Base discovery commands (PldmTypeBase).
const (
	CmdGetPLDMTypes    uint8 = 0x04
	CmdGetPLDMCommands uint8 = 0x05
)

// Platform/PDR commands (PldmTypePlatform).
const (
	CmdGetPDRRepositoryInfo uint8 = 0x50
	CmdGetPDR               uint8 = 0x51
)

// Firmware-update commands (PldmTypeFirmwareUpdate).
const (
	CmdRequestUpdate        uint8 = 0x10
	CmdGetPackageData       uint8 = 0x11
	CmdGetDeviceMetaData    uint8 = 0x12
	CmdUpdateComponent      uint8 = 0x14
	CmdPassComponentTable   uint8 = 0x13
	CmdRequestFirmwareData  uint8 = 0x15
	CmdTransferComplete     uint8 = 0x16
	CmdVerifyComplete       uint8 = 0x17
	CmdApplyComplete        uint8 = 0x18
	CmdGetMetaData          uint8 = 0x19
	CmdActivateFirmware     uint8 = 0x1A
	CmdCancelUpdateComponent uint8 = 0x1B
	CmdCancelUpdate         uint8 = 0x1C
)

// Completion codes common to every PLDM response.
const (
	CcSuccess           uint8 = 0x00
	CcError             uint8 = 0x01
	CcInvalidData       uint8 = 0x02
	CcInvalidLength     uint8 = 0x03
	CcNotReady          uint8 = 0x04
	CcUnsupportedCmd    uint8 = 0x05
	CcCommandNotExpected uint8 = 0x80
	CcRetryRequestUpdate uint8 = 0x81
)

// Repository state for GetPDRRepositoryInfo (spec §3 RepositoryInfo).
const (
	RepoStateAvailable   uint8 = 0x00
	RepoStateUpdateInProgress uint8 = 0x01
	RepoStateFailed      uint8 = 0x02
)

// Transfer operation flags for multi-part GetPDR / GetDeviceMetaData /
// SendPackageData / SendMetaData requests (spec §4.3, §4.4).
const (
	TransferOpGetFirstPart uint8 = 0x00
	TransferOpGetNextPart  uint8 = 0x01
)

// TransferFlag marks a segment's position in a multi-part transfer (spec
// glossary).
type TransferFlag uint8

const (
	TransferFlagStart        TransferFlag = 0x01
	TransferFlagMiddle       TransferFlag = 0x02
	TransferFlagEnd          TransferFlag = 0x04
	TransferFlagStartAndEnd  TransferFlag = 0x05
)

// Result codes for TransferComplete/VerifyComplete/ApplyComplete (spec
// §4.4 steps 4, 6, 8).
const (
	TransferResultSuccess uint8 = 0x00
	VerifyResultSuccess   uint8 = 0x00
	ApplyResultSuccess    uint8 = 0x00
	ApplyResultSuccessWithActivationMethod uint8 = 0x01
)

// UpdateComponent compatibility response (spec §4.4 step 1).
const (
	ComponentCanBeUpdated uint8 = 0x00
)
