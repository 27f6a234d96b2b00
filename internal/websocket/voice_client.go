package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/pkg/logger"
	"ai-assistant-studio-be/internal/service"
	"ai-assistant-studio-be/pkg/voice"
	"ai-assistant-studio-be/pkg/voice/relay"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// one PCM16 frame of 100ms at 48kHz is 9600 bytes
	voiceMaxMessageSize = 64 * 1024
	voiceSendBuffer     = 256
	voiceCommandBuffer  = 16
	commandTimeout      = 30 * time.Second
)

var errClientClosed = errors.New("voice client closed")

// VoiceClient drives one capture engine from a browser microphone. The
// browser relays PCM frames and answers permission prompts; commands run one
// at a time on their own goroutine so a pending prompt never blocks the
// reader.
type VoiceClient struct {
	ID          uuid.UUID
	AssistantId string
	Conn        *websocket.Conn

	service  service.IVoiceService
	platform *relay.Platform
	engine   *voice.Engine
	logger   logger.ILogger

	send     chan []byte
	commands chan dto.SocketMessage
	ctx      context.Context
	cancel   context.CancelFunc
}

// ServeVoice runs the voice protocol on conn until it closes. An active
// recording is discarded when the connection drops.
func ServeVoice(conn *websocket.Conn, assistantId string, svc service.IVoiceService, log logger.ILogger) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &VoiceClient{
		ID:          uuid.New(),
		AssistantId: assistantId,
		Conn:        conn,
		service:     svc,
		logger:      log,
		send:        make(chan []byte, voiceSendBuffer),
		commands:    make(chan dto.SocketMessage, voiceCommandBuffer),
		ctx:         ctx,
		cancel:      cancel,
	}
	c.platform = relay.New(c.emit)
	c.engine = svc.NewEngine(c.platform)

	c.logger.Info("VoiceClient", "Voice socket opened", map[string]interface{}{
		"client_id":    c.ID,
		"assistant_id": assistantId,
	})

	writerDone := make(chan struct{})
	go func() {
		c.writePump()
		close(writerDone)
	}()
	loopDone := make(chan struct{})
	go func() {
		c.commandLoop()
		close(loopDone)
	}()

	c.readPump()

	c.cancel()
	c.platform.Close()
	<-loopDone
	c.engine.Teardown()
	close(c.send)
	<-writerDone

	c.logger.Info("VoiceClient", "Voice socket closed", map[string]interface{}{"client_id": c.ID})
}

func encodeSocketMessage(msgType string, data any) ([]byte, error) {
	msg := dto.SocketMessage{Type: msgType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}

// emit queues a message for the client, waiting for buffer space. It also
// serves as the relay's control channel.
func (c *VoiceClient) emit(msgType string, data any) error {
	msg, err := encodeSocketMessage(msgType, data)
	if err != nil {
		return err
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return errClientClosed
	}
}

// onFrame publishes a volume frame, dropping it when the client lags.
func (c *VoiceClient) onFrame(frame voice.VolumeFrame) {
	msg, err := encodeSocketMessage(dto.VoiceVolume, frame)
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *VoiceClient) readPump() {
	defer c.Conn.Close()
	c.Conn.SetReadLimit(voiceMaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("VoiceClient", "Unexpected close", map[string]interface{}{
					"client_id": c.ID,
					"error":     err.Error(),
				})
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		switch mt {
		case websocket.BinaryMessage:
			if err := c.platform.Push(data); err != nil {
				c.fail(err)
			}
		case websocket.TextMessage:
			var msg dto.SocketMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.fail(errors.New("malformed message"))
				continue
			}
			c.handle(msg)
		}
	}
}

// handle applies state the browser reports and queues everything else.
func (c *VoiceClient) handle(msg dto.SocketMessage) {
	switch msg.Type {
	case dto.VoiceDevices:
		var payload dto.VoiceDevicesPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.fail(errors.New("malformed devices payload"))
			return
		}
		devices := make([]voice.Device, len(payload.Devices))
		for i, d := range payload.Devices {
			devices[i] = voice.Device{ID: d.Id, Label: d.Label}
		}
		c.platform.AnnounceDevices(devices)

	case dto.VoicePermission:
		var payload dto.VoicePermissionPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.fail(errors.New("malformed permission payload"))
			return
		}
		c.platform.SetPermission(payload.Granted)

	case dto.VoiceListDevices, dto.VoiceSelectDevice, dto.VoiceStart, dto.VoiceStop:
		select {
		case c.commands <- msg:
		default:
			c.fail(errors.New("too many pending commands"))
		}

	default:
		c.fail(errors.New("unknown message type " + msg.Type))
	}
}

func (c *VoiceClient) commandLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.commands:
			c.execute(msg)
		}
	}
}

func (c *VoiceClient) execute(msg dto.SocketMessage) {
	ctx, cancel := context.WithTimeout(c.ctx, commandTimeout)
	defer cancel()

	switch msg.Type {
	case dto.VoiceListDevices:
		devices, err := c.engine.ListInputDevices(ctx)
		if err != nil {
			c.fail(err)
			return
		}
		out := make([]dto.VoiceDeviceDTO, len(devices))
		for i, d := range devices {
			out[i] = dto.VoiceDeviceDTO{Id: d.ID, Label: d.Label}
		}
		c.emit(dto.VoiceDevices, dto.VoiceDevicesPayload{Devices: out})

	case dto.VoiceSelectDevice:
		var payload dto.VoiceSelectDevicePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.fail(errors.New("malformed select_device payload"))
			return
		}
		c.engine.SelectDevice(payload.DeviceId)

	case dto.VoiceStart:
		var payload dto.VoiceStartPayload
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				c.fail(errors.New("malformed start payload"))
				return
			}
		}
		c.platform.SetSampleRate(payload.SampleRate)

		session, err := c.engine.StartSession(ctx, c.onFrame)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit(dto.VoiceSessionStarted, dto.VoiceSessionStartedPayload{
			SessionId: session.ID(),
			DeviceId:  session.DeviceID(),
			MimeType:  session.MimeType(),
		})

	case dto.VoiceStop:
		c.stop(ctx)
	}
}

func (c *VoiceClient) stop(ctx context.Context) {
	session := c.engine.Active()
	if session == nil {
		return
	}

	outcome, err := session.Stop()
	c.settle(ctx, outcome, err)
}

// settle reports a stopped session. A recording that was stored is delivered
// even when the recorder failed while flushing.
func (c *VoiceClient) settle(ctx context.Context, outcome voice.Outcome, stopErr error) {
	if stopErr != nil {
		if outcome.Status != voice.OutcomeRecorded {
			c.fail(stopErr)
			return
		}
		c.logger.Warn("VoiceClient", "Recorder stopped with error, keeping recording", map[string]interface{}{
			"client_id": c.ID,
			"error":     stopErr.Error(),
		})
	}

	note, err := c.service.Complete(ctx, c.AssistantId, outcome)
	switch {
	case errors.Is(err, voice.ErrSilenceDiscarded), errors.Is(err, voice.ErrNoAudioCaptured):
		c.emit(dto.VoiceSilenceDetected, dto.VoiceErrorPayload{Message: err.Error()})
	case err != nil:
		c.fail(err)
	case note != nil:
		c.emit(dto.VoiceNote, note)
	}
}

// fail reports err to the client under the message type matching its kind.
func (c *VoiceClient) fail(err error) {
	msgType := dto.VoiceError
	switch {
	case errors.Is(err, voice.ErrPermissionDenied):
		msgType = dto.VoicePermissionError
	case errors.Is(err, voice.ErrDeviceAcquisition),
		errors.Is(err, voice.ErrDeviceNotFound),
		errors.Is(err, voice.ErrNoSupportedContainer):
		msgType = dto.VoiceDeviceError
	}

	c.logger.Warn("VoiceClient", "Voice command failed", map[string]interface{}{
		"client_id": c.ID,
		"type":      msgType,
		"error":     err.Error(),
	})
	c.emit(msgType, dto.VoiceErrorPayload{Message: err.Error()})
}

func (c *VoiceClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.abandon()
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.abandon()
				return
			}
		}
	}
}

// abandon gives up on a broken socket: the reader is unblocked by the close
// and the queue is drained until ServeVoice closes it.
func (c *VoiceClient) abandon() {
	c.cancel()
	c.Conn.Close()
	for range c.send {
	}
}
