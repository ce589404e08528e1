package sender

import (
	"fmt"
	"log/slog"

	"github.com/hypebeast/go-osc/osc"

	"github.com/linuxmatters/foosmic/internal/processor"
)

const (
	DefaultStatusAddress   = "/foosball_status"
	DefaultPositionAddress = "/position"
)

// OSCTarget is a UDP destination for OSC messages.
type OSCTarget struct {
	IP      string `yaml:"ip"`
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// Enabled reports whether the target has somewhere to send.
func (t OSCTarget) Enabled() bool {
	return t.IP != "" && t.Port > 0
}

func (t OSCTarget) address(def string) string {
	if t.Address == "" {
		return def
	}
	return t.Address
}

// OSCSender sends the full status to one target and the bare position to
// another, matching the patch layout the VCV Rack receivers expect.
type OSCSender struct {
	status          *osc.Client
	position        *osc.Client
	statusAddress   string
	positionAddress string
}

// NewOSCSender creates clients for the enabled targets. At least one must be
// enabled.
func NewOSCSender(status, position OSCTarget, logger *slog.Logger) (*OSCSender, error) {
	if !status.Enabled() && !position.Enabled() {
		return nil, fmt.Errorf("no OSC target configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &OSCSender{
		statusAddress:   status.address(DefaultStatusAddress),
		positionAddress: position.address(DefaultPositionAddress),
	}
	if status.Enabled() {
		s.status = osc.NewClient(status.IP, status.Port)
		logger.Info("osc status target", "ip", status.IP, "port", status.Port, "address", s.statusAddress)
	}
	if position.Enabled() {
		s.position = osc.NewClient(position.IP, position.Port)
		logger.Info("osc position target", "ip", position.IP, "port", position.Port, "address", s.positionAddress)
	}
	return s, nil
}

// Send emits the status message then the position message.
func (s *OSCSender) Send(st processor.Status) error {
	if s.status != nil {
		if err := s.status.Send(StatusMessage(s.statusAddress, st)); err != nil {
			return fmt.Errorf("send %s: %w", s.statusAddress, err)
		}
	}
	if s.position != nil {
		if err := s.position.Send(PositionMessage(s.positionAddress, st.Position)); err != nil {
			return fmt.Errorf("send %s: %w", s.positionAddress, err)
		}
	}
	return nil
}

// Targets describes the enabled destinations as ip:port/address.
func (s *OSCSender) Targets() []string {
	var out []string
	if s.status != nil {
		out = append(out, fmt.Sprintf("%s:%d%s", s.status.IP(), s.status.Port(), s.statusAddress))
	}
	if s.position != nil {
		out = append(out, fmt.Sprintf("%s:%d%s", s.position.IP(), s.position.Port(), s.positionAddress))
	}
	return out
}

// Close is a no-op; go-osc clients dial per send.
func (s *OSCSender) Close() error {
	return nil
}

// StatusMessage lays out a status as float32 arguments: every position
// channel's loudness, x, y, left goal, right goal, tempo.
func StatusMessage(address string, st processor.Status) *osc.Message {
	msg := osc.NewMessage(address)
	for _, l := range st.PositionLoudness {
		msg.Append(float32(l))
	}
	msg.Append(float32(st.Position.X))
	msg.Append(float32(st.Position.Y))
	msg.Append(float32(st.Goals[0]))
	msg.Append(float32(st.Goals[1]))
	msg.Append(float32(st.Tempo))
	return msg
}

// PositionMessage carries x and y as float32.
func PositionMessage(address string, p processor.Point) *osc.Message {
	return osc.NewMessage(address, float32(p.X), float32(p.Y))
}
