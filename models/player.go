// Package models player.go
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedRecord marks a snapshot entry that is missing its guid or carries
// unusable numbers. Such entries are dropped, the rest of the snapshot is applied.
var ErrMalformedRecord = errors.New("malformed player record")

// Event names carried in Envelope.Type.
const (
	EventGetConfig    = "getConfig"
	EventPostConfig   = "postConfig"
	EventAddPlayer    = "addPlayer"
	EventPostPlayer   = "postPlayer"
	EventRemovePlayer = "removePlayer"
	EventGetGameData  = "getGameData"
)

// PlayerRecord is the authoritative projection of one player's blob, as held by
// the state store and broadcast to every client.
type PlayerRecord struct {
	GUID        string  `json:"guid" msgpack:"guid"`
	Name        string  `json:"name" msgpack:"name"`
	Mass        float64 `json:"mass" msgpack:"mass"`
	Rotation    float64 `json:"rotation" msgpack:"rotation"`
	X           float64 `json:"x" msgpack:"x"`
	Y           float64 `json:"y" msgpack:"y"`
	XVel        float64 `json:"xVel" msgpack:"xVel"`
	YVel        float64 `json:"yVel" msgpack:"yVel"`
	ImageURL    string  `json:"imageUrl,omitempty" msgpack:"imageUrl,omitempty"`
	BgColor     string  `json:"bgColor,omitempty" msgpack:"bgColor,omitempty"`
	BorderColor string  `json:"borderColor,omitempty" msgpack:"borderColor,omitempty"`
	TextColor   string  `json:"textColor,omitempty" msgpack:"textColor,omitempty"`
}

// Validate reports ErrMalformedRecord when the record cannot be applied.
func (r PlayerRecord) Validate() error {
	if r.GUID == "" {
		return fmt.Errorf("%w: missing guid", ErrMalformedRecord)
	}
	if !finite(r.Mass) || r.Mass <= 0 {
		return fmt.Errorf("%w: guid %s has mass %v", ErrMalformedRecord, r.GUID, r.Mass)
	}
	for _, v := range []float64{r.Rotation, r.X, r.Y, r.XVel, r.YVel} {
		if !finite(v) {
			return fmt.Errorf("%w: guid %s has a non-finite coordinate", ErrMalformedRecord, r.GUID)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Style returns the visual fields of the record.
func (r PlayerRecord) Style() Style {
	return Style{
		BgColor:     r.BgColor,
		BorderColor: r.BorderColor,
		TextColor:   r.TextColor,
		ImageURL:    r.ImageURL,
	}
}

// GameData is the snapshot payload of a getGameData event.
type GameData struct {
	Players []PlayerRecord `json:"players"`
}

// Envelope wraps every message on the channel in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals payload into an envelope of the given type.
func Encode(eventType string, payload any) ([]byte, error) {
	if eventType == "" {
		return nil, errors.New("encode envelope: empty event type")
	}
	env := Envelope{Type: eventType}
	if payload != nil {
		pb, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
		}
		env.Payload = pb
	}
	return json.Marshal(env)
}

// DecodeEnvelope parses the outer envelope of a frame.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, errors.New("decode envelope: empty frame")
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// DecodePayload unmarshals the envelope payload into T.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 {
		return out, fmt.Errorf("empty payload for type %q", env.Type)
	}
	err := json.Unmarshal(env.Payload, &out)
	return out, err
}

// DecodeRecord parses and validates a single player record.
func DecodeRecord(raw []byte) (PlayerRecord, error) {
	var rec PlayerRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return PlayerRecord{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := rec.Validate(); err != nil {
		return PlayerRecord{}, err
	}
	return rec, nil
}

// DecodeGameData parses a snapshot entry by entry. Entries that fail to decode
// or validate are counted in dropped and skipped; the remainder keeps its order.
func DecodeGameData(payload []byte) (records []PlayerRecord, dropped int, err error) {
	var raw struct {
		Players []json.RawMessage `json:"players"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode game data: %w", err)
	}
	records = make([]PlayerRecord, 0, len(raw.Players))
	for _, entry := range raw.Players {
		rec, err := DecodeRecord(entry)
		if err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}
