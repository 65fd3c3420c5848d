package delivery

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wneessen/go-mail"

	"mashup/internal/config"
	"mashup/internal/logging"
	"mashup/internal/services"
)

type recordingClient struct {
	messages []*mail.Msg
	err      error
}

func (r *recordingClient) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	r.messages = append(r.messages, messages...)
	return r.err
}

func writeBytes(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mailConfig() config.Mail {
	cfg := config.Default()
	cfg.Mail.From = "mashup@example.com"
	return cfg.Mail
}

func TestSMTPSenderComposesMessage(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "merged_audio.zip")
	writeBytes(t, archive, "PK\x03\x04archive")

	client := &recordingClient{}
	sender, err := NewSMTPSender(mailConfig(), logging.NewNop(), WithClient(client))
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}
	if err := sender.Send(context.Background(), "fan@example.com", archive, "merged_audio.zip"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(client.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(client.messages))
	}

	var buf bytes.Buffer
	if _, err := client.messages[0].WriteTo(&buf); err != nil {
		t.Fatalf("render message: %v", err)
	}
	rendered := buf.String()
	for _, want := range []string{Subject, "fan@example.com", "mashup@example.com", "merged_audio.zip"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("rendered message missing %q", want)
		}
	}
}

func TestSMTPSenderMissingAttachment(t *testing.T) {
	client := &recordingClient{}
	sender, err := NewSMTPSender(mailConfig(), nil, WithClient(client))
	if err != nil {
		t.Fatal(err)
	}
	err = sender.Send(context.Background(), "fan@example.com", filepath.Join(t.TempDir(), "gone.zip"), "gone.zip")
	if !errors.Is(err, ErrFileNotFound) || !errors.Is(err, services.ErrDelivery) {
		t.Fatalf("expected file-not-found delivery error, got %v", err)
	}
	if got := Reason(err); got != "File not found" {
		t.Fatalf("unexpected reason %q", got)
	}
	if len(client.messages) != 0 {
		t.Fatal("nothing should be sent for a missing file")
	}
}

func TestSMTPSenderWrapsTransportFailure(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "merged_audio.zip")
	writeBytes(t, archive, "zip")

	client := &recordingClient{err: errors.New("535 authentication failed")}
	sender, err := NewSMTPSender(mailConfig(), nil, WithClient(client))
	if err != nil {
		t.Fatal(err)
	}
	err = sender.Send(context.Background(), "fan@example.com", archive, "")
	if !errors.Is(err, services.ErrDelivery) || !strings.Contains(err.Error(), "535 authentication failed") {
		t.Fatalf("expected wrapped delivery error, got %v", err)
	}
	if got := Reason(err); got != "535 authentication failed" {
		t.Fatalf("unexpected reason %q", got)
	}
}

func TestNewSMTPSenderRequiresFrom(t *testing.T) {
	cfg := mailConfig()
	cfg.From = ""
	if _, err := NewSMTPSender(cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDirectorySenderCopiesArchive(t *testing.T) {
	src := filepath.Join(t.TempDir(), "merged_audio.zip")
	writeBytes(t, src, "archive-bytes")
	out := filepath.Join(t.TempDir(), "exports")

	sender := NewDirectorySender(out, logging.NewNop())
	if err := sender.Send(context.Background(), "fan@example.com", src, "merged_audio.zip"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(out, "merged_audio.zip"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "archive-bytes" {
		t.Fatalf("unexpected copy %q", data)
	}
}

func TestDirectorySenderMissingFile(t *testing.T) {
	sender := NewDirectorySender(t.TempDir(), nil)
	if err := sender.Send(context.Background(), "", "/nonexistent/merged_audio.zip", ""); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected file-not-found, got %v", err)
	}
}
