package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sign returns the X-AdPilot-Signature value "t=<unix>,v1=<hex>". The
// timestamp is part of the MAC so a captured delivery cannot be replayed
// outside the receiver's tolerance.
func Sign(secret string, ts time.Time, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), mac(secret, ts.Unix(), payload))
}

// Verify checks header against payload and rejects timestamps further than
// tolerance from now. A zero tolerance skips the age check.
func Verify(secret string, payload []byte, header string, now time.Time, tolerance time.Duration) bool {
	var (
		ts  int64
		sig string
	)
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return false
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return false
			}
			ts = n
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return false
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return false
		}
	}

	return hmac.Equal([]byte(sig), []byte(mac(secret, ts, payload)))
}

func mac(secret string, ts int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	h.Write([]byte("."))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
