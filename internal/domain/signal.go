package domain

// ICECandidate is a locally gathered ICE candidate. A nil *ICECandidate
// delivered to a candidate handler marks the end of gathering.
type ICECandidate struct {
	SDPMid        string `json:"sdpMid"`
	SDPMLineIndex int    `json:"sdpMLineIndex"`
	Candidate     string `json:"candidate"`
}

// OfferConstraints are the options used when creating the local offer.
type OfferConstraints struct {
	VoiceActivityDetection bool `json:"voiceActivityDetection"`
	OfferToReceiveAudio    bool `json:"offerToReceiveAudio"`
	OfferToReceiveVideo    bool `json:"offerToReceiveVideo"`
}

// DefaultOfferConstraints returns the fixed constraints every session negotiates with.
func DefaultOfferConstraints() OfferConstraints {
	return OfferConstraints{
		VoiceActivityDetection: false,
		OfferToReceiveAudio:    true,
		OfferToReceiveVideo:    true,
	}
}

// MediaRequest selects which local devices to capture.
type MediaRequest struct {
	Audio bool
	Video bool
}
