//go:build windows
// +build windows

package midiwindows

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/leandrodaf/midiframe/internal/midi/bridge"
	"github.com/leandrodaf/midiframe/sdk/contracts"
	"github.com/leandrodaf/midiframe/sdk/framing"
	"go.uber.org/multierr"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type (
	HMIDIIN  windows.Handle
	HMIDIOUT windows.Handle
)

// Constants for callback flags
const (
	CALLBACK_NULL     = 0x00000000 // No callback
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_LONGDATA  = 0x3C4 // SysEx buffer returned
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

const (
	midiErrStillPlaying = 65 // MIDIERR_STILLPLAYING
	headerPollInterval  = time.Millisecond

	// SysEx input buffers queued with midiInAddBuffer. A dump longer than one
	// buffer arrives over several MIM_LONGDATA callbacks and is reassembled
	// by the framer.
	sysexBufferSize  = 1024
	sysexBufferCount = 4
)

// Struct representing MIDI input device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Struct representing MIDI output device capabilities
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// midiHdr mirrors MIDIHDR.
type midiHdr struct {
	lpData          *byte
	dwBufferLength  uint32
	dwBytesRecorded uint32
	dwUser          uintptr
	dwFlags         uint32
	lpNext          *midiHdr
	reserved        uintptr
	dwOffset        uint32
	dwReserved      [8]uintptr
}

// ClientMid manages MIDI on Windows
type ClientMid struct {
	logger     contracts.Logger
	in         *inputConn
	outHandle  HMIDIOUT
	mu         sync.Mutex
	session    *bridge.Session
	packetizer *framing.Packetizer
}

// inputConn is one open winmm input device together with its SysEx buffers.
type inputConn struct {
	id      uintptr // registry id passed to winmm as the callback instance
	handle  HMIDIIN
	logger  contracts.Logger
	input   *bridge.Input
	headers []*midiHdr
	closing atomic.Bool
}

var (
	inputs = newRegistry[*inputConn]()

	callbackOnce sync.Once
	callbackPtr  uintptr
)

// inputCallback returns the single callback shared by every input; winmm
// callbacks created with NewCallback are never released.
func inputCallback() uintptr {
	callbackOnce.Do(func() {
		callbackPtr = windows.NewCallback(midiInCallback)
	})
	return callbackPtr
}

// Load the winmm.dll library and required functions
var (
	winmm                      = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs       = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps       = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen             = winmm.NewProc("midiInOpen")
	procMidiInPrepareHeader    = winmm.NewProc("midiInPrepareHeader")
	procMidiInAddBuffer        = winmm.NewProc("midiInAddBuffer")
	procMidiInUnprepareHeader  = winmm.NewProc("midiInUnprepareHeader")
	procMidiInStart            = winmm.NewProc("midiInStart")
	procMidiInStop             = winmm.NewProc("midiInStop")
	procMidiInReset            = winmm.NewProc("midiInReset")
	procMidiInClose            = winmm.NewProc("midiInClose")
	procMidiOutGetNumDevs      = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps      = winmm.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen            = winmm.NewProc("midiOutOpen")
	procMidiOutPrepareHeader   = winmm.NewProc("midiOutPrepareHeader")
	procMidiOutLongMsg         = winmm.NewProc("midiOutLongMsg")
	procMidiOutUnprepareHeader = winmm.NewProc("midiOutUnprepareHeader")
	procMidiOutClose           = winmm.NewProc("midiOutClose")
)

// NewMIDIClient creates a MIDI client for Windows
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("MIDI client created for Windows")

	return &ClientMid{
		logger:     options.Logger,
		session:    bridge.NewSession(options.Logger, options.MIDIEventFilter),
		packetizer: framing.NewPacketizer(framing.WithMaxPacketSize(options.MaxPacketSize)),
	}, nil
}

// ListDevices lists the available MIDI input devices
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		m.logger.Warn(contracts.ErrNoMIDIDevices.Error())
		return nil, contracts.ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn("Failed to get information for MIDI input device", m.logger.Field().Int("deviceID", int(i)))
			continue
		}
		devices = append(devices, deviceInfo(int(i), caps.szPname[:], caps.wMid, caps.wPid))
	}
	return devices, nil
}

// ListOutputs lists the available MIDI output devices
func (m *ClientMid) ListOutputs() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		return nil, contracts.ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn("Failed to get information for MIDI output device", m.logger.Field().Int("deviceID", int(i)))
			continue
		}
		devices = append(devices, deviceInfo(int(i), caps.szPname[:], caps.wMid, caps.wPid))
	}
	return devices, nil
}

func deviceInfo(id int, pname []uint16, mid, pid uint16) contracts.DeviceInfo {
	name := windows.UTF16ToString(pname)
	return contracts.DeviceInfo{
		ID:           id,
		Name:         name,
		EntityName:   name,
		Manufacturer: fmt.Sprintf("MID: %d PID: %d", mid, pid),
	}
}

// SelectDevice opens the MIDI input device with the given ID, closing any
// previously selected input. If capture is running the new input starts
// immediately.
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.in != nil {
		if err := m.stopCapture(); err != nil {
			return fmt.Errorf("failed to stop previous MIDI capture: %w", err)
		}
	}

	conn, err := openInput(deviceID, m.logger, m.session.OpenInput())
	if err != nil {
		m.session.Reset()
		m.logger.Error("Failed to open MIDI device",
			m.logger.Field().Int("deviceID", deviceID),
			m.logger.Field().Error("error", err))
		return err
	}
	m.in = conn

	if m.session.Capturing() {
		if err := conn.start(); err != nil {
			return err
		}
	}

	m.logger.Info("MIDI device connected", m.logger.Field().Int("deviceID", deviceID))
	return nil
}

// openInput opens deviceID and queues its SysEx buffers.
func openInput(deviceID int, logger contracts.Logger, input *bridge.Input) (*inputConn, error) {
	conn := &inputConn{logger: logger, input: input}
	conn.id = inputs.add(conn)

	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&conn.handle)),
		uintptr(deviceID),
		inputCallback(),
		conn.id,
		uintptr(CALLBACK_FUNCTION|MIDI_IO_STATUS),
	)
	if r1 != 0 {
		inputs.remove(conn.id)
		return nil, fmt.Errorf("%w: open input %d: %v", contracts.ErrInvalidMIDIDevice, deviceID, err)
	}

	for i := 0; i < sysexBufferCount; i++ {
		if err := conn.addBuffer(); err != nil {
			return nil, multierr.Append(err, conn.close())
		}
	}
	return conn, nil
}

// addBuffer prepares a new SysEx buffer and queues it.
func (c *inputConn) addBuffer() error {
	buf := make([]byte, sysexBufferSize)
	hdr := &midiHdr{
		lpData:         &buf[0],
		dwBufferLength: uint32(len(buf)),
	}
	if r1, _, err := procMidiInPrepareHeader.Call(uintptr(c.handle), uintptr(unsafe.Pointer(hdr)), unsafe.Sizeof(*hdr)); r1 != 0 {
		return fmt.Errorf("midiInPrepareHeader: %v", err)
	}
	c.headers = append(c.headers, hdr)
	return c.queue(hdr)
}

// queue hands hdr back to the driver for the next SysEx bytes.
func (c *inputConn) queue(hdr *midiHdr) error {
	hdr.dwBytesRecorded = 0
	if r1, _, err := procMidiInAddBuffer.Call(uintptr(c.handle), uintptr(unsafe.Pointer(hdr)), unsafe.Sizeof(*hdr)); r1 != 0 {
		return fmt.Errorf("midiInAddBuffer: %v", err)
	}
	return nil
}

// header finds the queued buffer at address ptr.
func (c *inputConn) header(ptr uintptr) *midiHdr {
	for _, hdr := range c.headers {
		if uintptr(unsafe.Pointer(hdr)) == ptr {
			return hdr
		}
	}
	return nil
}

func (c *inputConn) start() error {
	if r1, _, err := procMidiInStart.Call(uintptr(c.handle)); r1 != 0 {
		return fmt.Errorf("midiInStart: %v", err)
	}
	return nil
}

// close stops the device, takes back every SysEx buffer and releases the
// handle. Buffers returned during the reset are not requeued.
func (c *inputConn) close() error {
	c.closing.Store(true)

	var err error
	if r1, _, stopErr := procMidiInStop.Call(uintptr(c.handle)); r1 != 0 {
		err = multierr.Append(err, fmt.Errorf("midiInStop: %v", stopErr))
	}
	if r1, _, resetErr := procMidiInReset.Call(uintptr(c.handle)); r1 != 0 {
		err = multierr.Append(err, fmt.Errorf("midiInReset: %v", resetErr))
	}
	for _, hdr := range c.headers {
		if r1, _, unprepErr := procMidiInUnprepareHeader.Call(uintptr(c.handle), uintptr(unsafe.Pointer(hdr)), unsafe.Sizeof(*hdr)); r1 != 0 {
			err = multierr.Append(err, fmt.Errorf("midiInUnprepareHeader: %v", unprepErr))
		}
	}
	if r1, _, closeErr := procMidiInClose.Call(uintptr(c.handle)); r1 != 0 {
		err = multierr.Append(err, fmt.Errorf("midiInClose: %v", closeErr))
	}
	inputs.remove(c.id)
	return err
}

// SelectOutput opens the MIDI output device with the given ID
func (m *ClientMid) SelectOutput(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.outHandle != 0 {
		if r1, _, err := procMidiOutClose.Call(uintptr(m.outHandle)); r1 != 0 {
			return fmt.Errorf("failed to close previous MIDI output: %v", err)
		}
		m.outHandle = 0
	}

	r1, _, err := procMidiOutOpen.Call(
		uintptr(unsafe.Pointer(&m.outHandle)),
		uintptr(deviceID),
		0,
		0,
		CALLBACK_NULL,
	)
	if r1 != 0 {
		m.outHandle = 0
		return fmt.Errorf("%w: open output %d: %v", contracts.ErrInvalidMIDIDevice, deviceID, err)
	}

	m.logger.Info("MIDI output connected", m.logger.Field().Int("deviceID", deviceID))
	return nil
}

// StartCapture initializes MIDI event capture
func (m *ClientMid) StartCapture(eventChannel chan contracts.MIDI) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.in == nil {
		m.logger.Error("Cannot start capture: No MIDI device selected")
		return
	}

	if m.session.Capturing() {
		m.logger.Warn("Capture already started")
		return
	}

	if err := m.in.start(); err != nil {
		m.logger.Error("Failed to start MIDI capture", m.logger.Field().Error("error", err))
		return
	}
	m.session.Start(eventChannel)

	m.logger.Info("MIDI capture started")
}

// midiInCallback routes winmm input to the inputConn registered under
// dwInstance. Short messages arrive packed into dwParam1; SysEx arrives in
// the buffer whose MIDIHDR address is dwParam1. dwParam2 is the timestamp in
// milliseconds since midiInStart.
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	c, ok := inputs.get(dwInstance)
	if !ok {
		return 0
	}

	switch wMsg {
	case MIM_OPEN:
		c.logger.Info("MIDI device opened")
	case MIM_CLOSE:
		c.logger.Info("MIDI device closed")
	case MIM_DATA, MIM_MOREDATA:
		c.shortMessage(dwParam1, uint64(dwParam2))
	case MIM_LONGDATA:
		c.longMessage(dwParam1, uint64(dwParam2))
	case MIM_ERROR:
		c.logger.Error("Invalid MIDI message received", c.logger.Field().Uint64("msg", uint64(dwParam1)))
	case MIM_LONGERROR:
		c.logger.Error("Invalid SysEx received")
		if hdr := c.header(dwParam1); hdr != nil {
			c.requeue(hdr)
		}
	default:
		c.logger.Warn("Unknown MIDI message", c.logger.Field().Uint64("msg", uint64(wMsg)))
	}

	return 0
}

func (c *inputConn) shortMessage(packed uintptr, timestamp uint64) {
	msg := [3]byte{
		byte(packed & 0xFF),
		byte((packed >> 8) & 0xFF),
		byte((packed >> 16) & 0xFF),
	}
	n := framing.MessageLength(msg[0])
	if n == 0 {
		n = 1
	}
	c.input.Feed(msg[:n], timestamp)
}

// longMessage feeds the recorded bytes of a returned SysEx buffer and queues
// the buffer again.
func (c *inputConn) longMessage(ptr uintptr, timestamp uint64) {
	hdr := c.header(ptr)
	if hdr == nil {
		c.logger.Warn("SysEx buffer not owned by this input")
		return
	}
	if c.closing.Load() {
		return
	}
	if n := hdr.dwBytesRecorded; n > 0 {
		c.input.Feed(unsafe.Slice(hdr.lpData, n), timestamp)
	}
	c.requeue(hdr)
}

func (c *inputConn) requeue(hdr *midiHdr) {
	if c.closing.Load() {
		return
	}
	if err := c.queue(hdr); err != nil {
		c.logger.Error("Failed to requeue SysEx buffer", c.logger.Field().Error("error", err))
	}
}

// Send writes data to the selected output. winmm has no output timestamps,
// so packets are played as soon as they are queued.
func (m *ClientMid) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.outHandle == 0 {
		return contracts.ErrNoOutputSelected
	}
	return bridge.Transmit(m.packetizer, data, m.sendPacket)
}

// SendAt is Send; the timestamp is ignored by winmm.
func (m *ClientMid) SendAt(data []byte, timestamp uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.outHandle == 0 {
		return contracts.ErrNoOutputSelected
	}
	return bridge.TransmitAt(m.packetizer, data, timestamp, m.sendPacket)
}

// sendPacket plays one packet with midiOutLongMsg and waits for the driver to
// hand the buffer back.
func (m *ClientMid) sendPacket(pkt framing.Packet) error {
	buf := make([]byte, len(pkt.Data))
	copy(buf, pkt.Data)

	hdr := &midiHdr{
		lpData:         &buf[0],
		dwBufferLength: uint32(len(buf)),
	}
	size := unsafe.Sizeof(*hdr)

	if r1, _, err := procMidiOutPrepareHeader.Call(uintptr(m.outHandle), uintptr(unsafe.Pointer(hdr)), size); r1 != 0 {
		return fmt.Errorf("midiOutPrepareHeader: %v", err)
	}

	var sendErr error
	if r1, _, err := procMidiOutLongMsg.Call(uintptr(m.outHandle), uintptr(unsafe.Pointer(hdr)), size); r1 != 0 {
		sendErr = fmt.Errorf("midiOutLongMsg: %v", err)
	}

	for {
		r1, _, err := procMidiOutUnprepareHeader.Call(uintptr(m.outHandle), uintptr(unsafe.Pointer(hdr)), size)
		if r1 == 0 {
			break
		}
		if r1 != midiErrStillPlaying {
			return multierr.Append(sendErr, fmt.Errorf("midiOutUnprepareHeader: %v", err))
		}
		time.Sleep(headerPollInterval)
	}
	return sendErr
}

// Stop terminates MIDI event capture and closes the devices
func (m *ClientMid) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.in != nil {
		if stopErr := m.stopCapture(); stopErr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to stop MIDI capture: %w", stopErr))
		}
	}
	m.session.Stop()
	if m.outHandle != 0 {
		if r1, _, closeErr := procMidiOutClose.Call(uintptr(m.outHandle)); r1 != 0 {
			err = multierr.Append(err, fmt.Errorf("failed to close MIDI output: %v", closeErr))
		}
		m.outHandle = 0
	}

	if err == nil {
		m.logger.Info("MIDI capture stopped and devices closed",
			m.logger.Field().Uint64("dropped", m.session.Dropped()))
	}
	return err
}

// stopCapture closes the input device and resets the session, keeping the
// event channel attached for the next input.
func (m *ClientMid) stopCapture() error {
	err := m.in.close()
	if err != nil {
		m.logger.Error("Failed to close MIDI device", m.logger.Field().Error("error", err))
	}
	m.in = nil
	m.session.Reset()
	return err
}
