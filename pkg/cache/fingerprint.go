package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
	"math"
	"strconv"

	"nexusgate/pkg/proxy/types"
)

// Fingerprint is the cache key: a stable hash over the request inputs that
// determine a response under deterministic sampling.
type Fingerprint string

// ComputeFingerprint hashes adapter kind, model, the message sequence, and
// every sampling parameter that affects determinism. Fields are
// length-prefixed so adjacent values cannot collide by concatenation.
func ComputeFingerprint(adapterName, model string, req *types.ChatCompletionRequest) Fingerprint {
	h := sha256.New()

	writeField(h, []byte(adapterName))
	writeField(h, []byte(model))

	for _, msg := range req.Messages {
		writeField(h, []byte(msg.Role))
		writeField(h, []byte(msg.Content))
		writeField(h, []byte(msg.Name))
		writeField(h, []byte(msg.ToolCallID))
		for _, tc := range msg.ToolCalls {
			writeField(h, []byte(tc.ID))
			writeField(h, []byte(tc.Function.Name))
			writeField(h, []byte(tc.Function.Arguments))
		}
	}

	writeFloatField(h, req.Temperature)
	writeFloatField(h, req.TopP)
	writeIntField(h, req.MaxTokens)
	writeField(h, []byte(strconv.Itoa(req.ChoiceCount())))

	for _, stop := range req.StopList() {
		writeField(h, []byte(stop))
	}

	writeField(h, req.ResponseFormat)
	writeField(h, req.ToolChoice)
	if len(req.Tools) > 0 {
		// Tools carry nested schemas; canonical JSON is stable enough
		// because the declarations come from a single caller encoding.
		encoded, _ := json.Marshal(req.Tools)
		writeField(h, encoded)
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// writeField writes a length-prefixed byte field.
func writeField(h hash.Hash, field []byte) {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(len(field)))
	h.Write(prefix[:])
	h.Write(field)
}

func writeFloatField(h hash.Hash, v *float64) {
	if v == nil {
		writeField(h, nil)
		return
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(*v))
	writeField(h, buf[:])
}

func writeIntField(h hash.Hash, v *int) {
	if v == nil {
		writeField(h, nil)
		return
	}
	writeField(h, []byte(strconv.Itoa(*v)))
}
