package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fluencyboost/fluencyboost/internal/config"
	"github.com/fluencyboost/fluencyboost/pkg/provider/playback"
	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition"
	recognitionmock "github.com/fluencyboost/fluencyboost/pkg/provider/recognition/mock"
)

func TestRegistry_CreateRecognition(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	reg.RegisterRecognition("mock", func(entry config.ProviderEntry) (recognition.Provider, error) {
		return &recognitionmock.Provider{}, nil
	})

	p, err := reg.CreateRecognition(config.ProviderEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("CreateRecognition: %v", err)
	}
	if p == nil {
		t.Fatal("expected a provider instance")
	}
}

func TestRegistry_EmptyNameDisablesCapability(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	p, err := reg.CreateRecognition(config.ProviderEntry{})
	if err != nil {
		t.Fatalf("CreateRecognition: %v", err)
	}
	if p != nil {
		t.Error("expected nil provider for empty name")
	}

	pb, err := reg.CreatePlayback(config.ProviderEntry{})
	if err != nil {
		t.Fatalf("CreatePlayback: %v", err)
	}
	if pb != nil {
		t.Error("expected nil playback provider for empty name")
	}
}

func TestRegistry_UnregisteredName(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	_, err := reg.CreateRecognition(config.ProviderEntry{Name: "nope"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got %v", err)
	}
}

func TestRegistry_FactoryReceivesEntry(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	var got config.ProviderEntry
	reg.RegisterPlayback("probe", func(entry config.ProviderEntry) (playback.Provider, error) {
		got = entry
		return speakNothing{}, nil
	})

	entry := config.ProviderEntry{Name: "probe", APIKey: "k", SpeedFactor: 0.8}
	if _, err := reg.CreatePlayback(entry); err != nil {
		t.Fatalf("CreatePlayback: %v", err)
	}
	if got.APIKey != "k" || got.SpeedFactor != 0.8 {
		t.Errorf("factory received %+v", got)
	}
}

type speakNothing struct{}

func (speakNothing) Speak(context.Context, string) error { return nil }
