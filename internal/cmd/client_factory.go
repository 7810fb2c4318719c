package cmd

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/restclient/restclient/internal/api"
	"github.com/restclient/restclient/internal/codec"
	"github.com/restclient/restclient/internal/config"
	"github.com/restclient/restclient/internal/dryrun"
	"github.com/restclient/restclient/internal/resolve"
	"github.com/restclient/restclient/internal/transport"
)

type clientFactory struct {
	observer api.Observer
	recorder *dryrun.Transport
}

func newClientFactory() *clientFactory {
	return &clientFactory{}
}

// settings resolves the effective connection settings from flags, the
// environment and the selected profile.
func (f *clientFactory) settings() (config.Settings, error) {
	profile, err := resolveProfileName(flags.Profile)
	if err != nil {
		return config.Settings{}, err
	}
	ov := config.Overrides{
		Profile:    profile,
		BaseURL:    flags.BaseURL,
		Token:      flags.Token,
		Auth:       flags.Auth,
		AuthHeader: flags.AuthHeader,
		Transport:  flags.Transport,
		Codec:      flags.Codec,
		Decode:     flags.Decode,
		Timeout:    flags.Timeout,
		Insecure:   flags.Insecure,
	}
	if flags.AuthPrefixSet {
		prefix := flags.AuthPrefix
		ov.AuthPrefix = &prefix
	}
	return config.Resolve(ov)
}

// client builds a dispatcher for s. In dry-run mode the transport records
// exchanges into f.recorder instead of sending them.
func (f *clientFactory) client(ctx context.Context, s config.Settings) (*api.Client, error) {
	var t api.Transport
	if dryrun.IsEnabled(ctx) {
		f.recorder = &dryrun.Transport{Mask: []string{s.Auth.Header}}
		t = f.recorder
	} else {
		var topts []transport.Option
		if s.Insecure {
			slog.Warn("TLS certificate verification disabled")
			topts = append(topts, transport.WithCertificateValidator(transport.AcceptAnyCertificate{}))
		}
		var err error
		t, err = transport.ByName(s.Transport, topts...)
		if err != nil {
			return nil, err
		}
	}
	c, err := codec.ByName(s.Codec)
	if err != nil {
		return nil, err
	}

	opts := api.Options{
		Transport:    t,
		Codec:        c,
		Counters:     api.DefaultCounters,
		AppVersion:   version,
		DefaultAuth:  s.Auth,
		DecodePolicy: s.Decode,
		Timeout:      s.Timeout,
		Observer:     f.observer,
	}
	switch id := strings.TrimSpace(flags.RequestID); {
	case strings.EqualFold(id, "auto"):
		opts.RequestIDFunc = uuid.NewString
	case id != "":
		opts.RequestID = id
	}
	return api.New(opts), nil
}

// resolveProfileName fuzzy-matches name against stored profiles. Unknown
// names are returned as given so the config layer reports them.
func resolveProfileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	names, err := config.ListProfiles()
	if err != nil || len(names) == 0 {
		return name, nil
	}
	match, err := resolve.Name(name, names)
	if err != nil {
		var ambiguous *resolve.AmbiguousError
		if errors.As(err, &ambiguous) {
			return "", err
		}
		return name, nil
	}
	if match != name {
		slog.Debug("resolved profile", "query", name, "profile", match)
	}
	return match, nil
}
