package sdppatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"
)

// Media describes one m= section of a session description.
type Media struct {
	Kind      string
	Mid       string
	Direction string
	Codecs    []string
}

// Summary is a compact view of an SDP body for logging.
type Summary struct {
	Media []Media
}

func (s Summary) String() string {
	parts := make([]string, len(s.Media))
	for i, m := range s.Media {
		parts[i] = fmt.Sprintf("%s(mid=%s %s [%s])", m.Kind, m.Mid, m.Direction, strings.Join(m.Codecs, " "))
	}
	return strings.Join(parts, " ")
}

var directions = []string{"sendrecv", "sendonly", "recvonly", "inactive"}

// Summarize parses sdpText and lists its media sections and codecs.
func Summarize(sdpText string) (Summary, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(sdpText)); err != nil {
		return Summary{}, fmt.Errorf("parse sdp: %w", err)
	}

	var sum Summary
	for _, md := range desc.MediaDescriptions {
		m := Media{Kind: md.MediaName.Media}
		if mid, ok := md.Attribute(sdp.AttrKeyMID); ok {
			m.Mid = mid
		}
		for _, dir := range directions {
			if _, ok := md.Attribute(dir); ok {
				m.Direction = dir
				break
			}
		}
		for _, pt := range md.MediaName.Formats {
			n, err := strconv.ParseUint(pt, 10, 8)
			if err != nil {
				continue
			}
			codec, err := desc.GetCodecForPayloadType(uint8(n))
			if err != nil {
				continue
			}
			name := codec.Name
			if codec.Fmtp != "" {
				name += ";" + codec.Fmtp
			}
			m.Codecs = append(m.Codecs, name)
		}
		sum.Media = append(sum.Media, m)
	}
	return sum, nil
}
