package handlers

import (
	"encoding/base64"

	"github.com/tussenheid/volunteer-intake/internal/intake"
	"github.com/tussenheid/volunteer-intake/internal/models"
)

// BuildResponse packages one turn for the client. extracted holds only the
// fields found in this turn; merging them into the profile is up to the
// client.
func BuildResponse(userText, botText string, audio []byte, extracted intake.Profile, known intake.KnownSet, finished bool) *models.TurnResponse {
	encoded := ""
	if len(audio) > 0 {
		encoded = base64.StdEncoding.EncodeToString(audio)
	}

	return &models.TurnResponse{
		UserText:      userText,
		BotText:       botText,
		AudioBase64:   encoded,
		ExtractedData: extracted.Map(),
		KnownFields:   known.Strings(),
		IsFinished:    finished,
	}
}
