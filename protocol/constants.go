// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Dual-port RAM wire protocol constants: command and reply discriminants,
// payload limits and fixed field widths.

package protocol

import (
	"encoding/binary"
	"strconv"
)

// ByteOrder of every multi-byte field in the window, as seen from the host bus.
var ByteOrder = binary.BigEndian

const (
	// HeaderSize is the width of the discriminant that starts every frame.
	HeaderSize = 4

	DbgMsgLen    = 256
	PathLen      = 128
	BoardNameLen = 32
	WiFiSSIDLen  = 128
	WiFiPassLen  = 128

	DiskBlockSize       = 512
	DiskMaxBlocksPerRPC = 7
	DiskMaxTransfer     = DiskBlockSize * DiskMaxBlocksPerRPC

	DiskNrSD  = 0
	DiskNrUSB = 1

	EthMTU        = 1500
	EthHeaderLen  = 14
	EthMaxFrame   = EthMTU + EthHeaderLen
	EthMACSize    = 6
	EthMinPayload = EthMACSize
)

// CommandID identifies a host to peer command.
type CommandID uint32

const (
	CmdNop CommandID = iota
	CmdDbgMsg
	CmdJpegTest
	CmdAudioTest
	CmdSetCPUTurbo
	CmdSelectKick
	CmdGetDiag
	CmdSetIDEMode
	CmdSetIDESpeed
	CmdSetHIDMouseRes
	CmdSetWiFiSSID
	CmdSetWiFiPass
	CmdSetTempRegulator
	CmdSetTimeZoneShift
	CmdOpenDir
	CmdCloseDir
	CmdReadDir
	CmdSDGetInfo
	CmdDiskWriteBlocks
	CmdDiskReadBlocks
	CmdGetHIDMouseRes
	CmdUSBDiskGetInfo
	CmdGetARMInfo
	CmdEthTransmit
	CmdEthReceive
	CmdEthGetMACAddr
	CmdGetMouseWheelData
)

var commandNames = [...]string{
	"nop", "dbg-msg", "jpeg-test", "audio-test", "set-cpu-turbo", "select-kick",
	"get-diag", "set-ide-mode", "set-ide-speed", "set-hid-mouse-res",
	"set-wifi-ssid", "set-wifi-pass", "set-temp-regulator", "set-tz-shift",
	"open-dir", "close-dir", "read-dir", "sd-get-info", "disk-write-blocks",
	"disk-read-blocks", "get-hid-mouse-res", "usb-disk-get-info", "get-arm-info",
	"eth-transmit", "eth-receive", "eth-get-mac", "get-mouse-wheel",
}

func (c CommandID) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return "cmd(" + strconv.FormatUint(uint64(c), 10) + ")"
}

// ReplyID identifies a peer to host reply.
type ReplyID uint32

const (
	RplNop ReplyID = iota
	RplDiagFrame
	RplOpenDirStatus
	RplReadDir
	RplSDGetInfo
	RplDiskReadBlocks
	RplDiskWriteBlocks
	RplHIDMouseRes
	RplUSBGetInfo
	RplARMInfo
	RplEthReceive
	RplEthMACAddr
	RplMouseWheelData
)

var replyNames = [...]string{
	"nop", "diag-frame", "open-dir-status", "read-dir", "sd-info",
	"disk-read-blocks", "disk-write-blocks", "hid-mouse-res", "usb-info",
	"arm-info", "eth-receive", "eth-mac", "mouse-wheel",
}

func (r ReplyID) String() string {
	if int(r) < len(replyNames) {
		return replyNames[r]
	}
	return "rpl(" + strconv.FormatUint(uint64(r), 10) + ")"
}
