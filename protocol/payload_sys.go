// File: protocol/payload_sys.go
// Author: momentics <momentics@gmail.com>
//
// Board configuration and diagnostics command family.

package protocol

// DbgMsg prints a message on the peer's debug console.
type DbgMsg struct {
	Type uint8
	Msg  string
}

func (DbgMsg) CommandID() CommandID { return CmdDbgMsg }
func (DbgMsg) PayloadSize() int     { return 1 + DbgMsgLen }

func (c DbgMsg) MarshalPayload(p []byte) error {
	p[0] = c.Type
	putString(p[1:], c.Msg, DbgMsgLen)
	return nil
}

func (c *DbgMsg) UnmarshalPayload(p []byte) error {
	c.Type = p[0]
	c.Msg = getString(p[1:], DbgMsgLen)
	return nil
}

// SetCPUTurbo selects the host CPU turbo level.
type SetCPUTurbo struct {
	Level uint32
}

func (SetCPUTurbo) CommandID() CommandID { return CmdSetCPUTurbo }
func (SetCPUTurbo) PayloadSize() int     { return 4 }

func (c SetCPUTurbo) MarshalPayload(p []byte) error {
	ByteOrder.PutUint32(p, c.Level)
	return nil
}

func (c *SetCPUTurbo) UnmarshalPayload(p []byte) error {
	c.Level = ByteOrder.Uint32(p)
	return nil
}

// SelectKick picks the boot image slot.
type SelectKick struct {
	Nr uint8
}

func (SelectKick) CommandID() CommandID { return CmdSelectKick }
func (SelectKick) PayloadSize() int     { return 1 }

func (c SelectKick) MarshalPayload(p []byte) error {
	p[0] = c.Nr
	return nil
}

func (c *SelectKick) UnmarshalPayload(p []byte) error {
	c.Nr = p[0]
	return nil
}

// SetIDEMode toggles the native IDE controller.
type SetIDEMode struct {
	NativeEnable bool
}

func (SetIDEMode) CommandID() CommandID { return CmdSetIDEMode }
func (SetIDEMode) PayloadSize() int     { return 1 }

func (c SetIDEMode) MarshalPayload(p []byte) error {
	putBool(p, c.NativeEnable)
	return nil
}

func (c *SetIDEMode) UnmarshalPayload(p []byte) error {
	c.NativeEnable = p[0] != 0
	return nil
}

// SetIDESpeed programs the IDE strobe timings.
type SetIDESpeed struct {
	IORAssert, IORNegate uint8
	IOWAssert, IOWNegate uint8
	ACKAssert            uint8
}

func (SetIDESpeed) CommandID() CommandID { return CmdSetIDESpeed }
func (SetIDESpeed) PayloadSize() int     { return 5 }

func (c SetIDESpeed) MarshalPayload(p []byte) error {
	p[0], p[1], p[2], p[3], p[4] = c.IORAssert, c.IORNegate, c.IOWAssert, c.IOWNegate, c.ACKAssert
	return nil
}

func (c *SetIDESpeed) UnmarshalPayload(p []byte) error {
	c.IORAssert, c.IORNegate, c.IOWAssert, c.IOWNegate, c.ACKAssert = p[0], p[1], p[2], p[3], p[4]
	return nil
}

// SetHIDMouseRes sets the USB mouse resolution, 8.8 fixed point (256 = 1.0).
type SetHIDMouseRes struct {
	Res uint16
}

func (SetHIDMouseRes) CommandID() CommandID { return CmdSetHIDMouseRes }
func (SetHIDMouseRes) PayloadSize() int     { return 2 }

func (c SetHIDMouseRes) MarshalPayload(p []byte) error {
	ByteOrder.PutUint16(p, c.Res)
	return nil
}

func (c *SetHIDMouseRes) UnmarshalPayload(p []byte) error {
	c.Res = ByteOrder.Uint16(p)
	return nil
}

// HIDMouseRes is the reply to CmdGetHIDMouseRes.
type HIDMouseRes struct {
	Res uint16
}

func (HIDMouseRes) ReplyID() ReplyID  { return RplHIDMouseRes }
func (HIDMouseRes) PayloadSize() int { return 2 }

func (r HIDMouseRes) MarshalPayload(p []byte) error {
	ByteOrder.PutUint16(p, r.Res)
	return nil
}

func (r *HIDMouseRes) UnmarshalPayload(p []byte) error {
	r.Res = ByteOrder.Uint16(p)
	return nil
}

// SetWiFiSSID stores the network name on the peer.
type SetWiFiSSID struct {
	SSID string
}

func (SetWiFiSSID) CommandID() CommandID { return CmdSetWiFiSSID }
func (SetWiFiSSID) PayloadSize() int     { return WiFiSSIDLen }

func (c SetWiFiSSID) MarshalPayload(p []byte) error {
	putString(p, c.SSID, WiFiSSIDLen)
	return nil
}

func (c *SetWiFiSSID) UnmarshalPayload(p []byte) error {
	c.SSID = getString(p, WiFiSSIDLen)
	return nil
}

// SetWiFiPass stores the network passphrase on the peer.
type SetWiFiPass struct {
	Pass string
}

func (SetWiFiPass) CommandID() CommandID { return CmdSetWiFiPass }
func (SetWiFiPass) PayloadSize() int     { return WiFiPassLen }

func (c SetWiFiPass) MarshalPayload(p []byte) error {
	putString(p, c.Pass, WiFiPassLen)
	return nil
}

func (c *SetWiFiPass) UnmarshalPayload(p []byte) error {
	c.Pass = getString(p, WiFiPassLen)
	return nil
}

// SetTempRegulator configures the fan regulator.
type SetTempRegulator struct {
	CPUTemp       int32
	MinPWMPercent int32
}

func (SetTempRegulator) CommandID() CommandID { return CmdSetTempRegulator }
func (SetTempRegulator) PayloadSize() int     { return 8 }

func (c SetTempRegulator) MarshalPayload(p []byte) error {
	ByteOrder.PutUint32(p, uint32(c.CPUTemp))
	ByteOrder.PutUint32(p[4:], uint32(c.MinPWMPercent))
	return nil
}

func (c *SetTempRegulator) UnmarshalPayload(p []byte) error {
	c.CPUTemp = int32(ByteOrder.Uint32(p))
	c.MinPWMPercent = int32(ByteOrder.Uint32(p[4:]))
	return nil
}

// SetTimeZoneShift sets the RTC correction in seconds.
type SetTimeZoneShift struct {
	ShiftSecs int32
}

func (SetTimeZoneShift) CommandID() CommandID { return CmdSetTimeZoneShift }
func (SetTimeZoneShift) PayloadSize() int     { return 4 }

func (c SetTimeZoneShift) MarshalPayload(p []byte) error {
	ByteOrder.PutUint32(p, uint32(c.ShiftSecs))
	return nil
}

func (c *SetTimeZoneShift) UnmarshalPayload(p []byte) error {
	c.ShiftSecs = int32(ByteOrder.Uint32(p))
	return nil
}

// ARMInfo is the reply to CmdGetARMInfo.
type ARMInfo struct {
	CPURevID   uint32
	HALVersion uint32
}

func (ARMInfo) ReplyID() ReplyID  { return RplARMInfo }
func (ARMInfo) PayloadSize() int { return 8 }

func (r ARMInfo) MarshalPayload(p []byte) error {
	ByteOrder.PutUint32(p, r.CPURevID)
	ByteOrder.PutUint32(p[4:], r.HALVersion)
	return nil
}

func (r *ARMInfo) UnmarshalPayload(p []byte) error {
	r.CPURevID = ByteOrder.Uint32(p)
	r.HALVersion = ByteOrder.Uint32(p[4:])
	return nil
}

// MouseWheelData is the reply to CmdGetMouseWheelData.
type MouseWheelData struct {
	Count int8
}

func (MouseWheelData) ReplyID() ReplyID  { return RplMouseWheelData }
func (MouseWheelData) PayloadSize() int { return 1 }

func (r MouseWheelData) MarshalPayload(p []byte) error {
	p[0] = byte(r.Count)
	return nil
}

func (r *MouseWheelData) UnmarshalPayload(p []byte) error {
	r.Count = int8(p[0])
	return nil
}
