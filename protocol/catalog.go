// File: protocol/catalog.go
// Author: momentics <momentics@gmail.com>
//
// Window sizing over the catalogued shapes.

package protocol

// MaxPayload is the largest payload among all catalogued shapes
// (DiskWriteBlocks).
const MaxPayload = 8 + DiskMaxTransfer + 6

// WindowSize is the number of bytes host and peer must share.
const WindowSize = HeaderSize + MaxPayload

// Shapes lists one zero value of every typed payload in the catalog.
func Shapes() []Payload {
	return []Payload{
		Bare(CmdNop),
		&DbgMsg{}, &SetCPUTurbo{}, &SelectKick{}, &SetIDEMode{}, &SetIDESpeed{},
		&SetHIDMouseRes{}, &HIDMouseRes{}, &SetWiFiSSID{}, &SetWiFiPass{},
		&SetTempRegulator{}, &SetTimeZoneShift{}, &ARMInfo{}, &MouseWheelData{},
		&OpenDir{}, &OpenDirStatus{}, &DirEntry{},
		&DiskReadBlocks{}, &DiskReadBlocksReply{}, &DiskWriteBlocks{}, &DiskWriteBlocksReply{},
		&EthTransmit{}, &EthReceive{}, &EthMACAddr{},
	}
}

// LargestShape computes the maximum PayloadSize over Shapes.
func LargestShape() int {
	m := 0
	for _, s := range Shapes() {
		m = max(m, s.PayloadSize())
	}
	return m
}
