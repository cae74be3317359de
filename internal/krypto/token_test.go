package krypto_test

import (
	"bytes"
	"encoding/hex"
	"log/slog"
	"strings"
	"testing"

	"github.com/porthealth/porthealth/internal/krypto"
)

func Test_GenerateToken(t *testing.T) {
	a := must(krypto.GenerateToken())
	b := must(krypto.GenerateToken())

	if a == b {
		t.Fatalf("expected two generated tokens to differ, both were %x", a)
	}

	if a == (krypto.Token{}) {
		t.Errorf("expected a non-zero token")
	}
}

func Test_Token_LogValue(t *testing.T) {
	tok := must(krypto.GenerateToken())

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("attempting to log a token", "token", tok)

	s := buf.String()
	if strings.Contains(s, hex.EncodeToString(tok[:])) {
		t.Errorf("log output\n%s\ncontains raw token", s)
	}

	if !strings.Contains(s, krypto.SecretMarker) {
		t.Errorf("log output\n%s\ndoes not contain secret marker", s)
	}
}
