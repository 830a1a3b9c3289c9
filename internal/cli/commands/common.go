package commands

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/dayleaf-dev/dayleaf/internal/cli/userconfig"
	"github.com/dayleaf-dev/dayleaf/internal/client"
	"github.com/dayleaf-dev/dayleaf/internal/kvstore"
	"github.com/dayleaf-dev/dayleaf/internal/session"
)

const keyringService = "dayleaf"

// stack wires the client session layer for one CLI invocation: durable
// store, session store, migration, auth bridge, API client and the
// inactivity lifecycle.
type stack struct {
	cfg     *userconfig.Config
	kv      kvstore.Store
	store   *session.Store
	bridge  *session.Bridge
	api     *client.Client
	life    *session.Lifecycle
	log     zerolog.Logger
	unwatch func()
}

// newStack builds the session stack, runs the one-time legacy credential
// migration, and records this invocation as user activity.
func newStack() (*stack, error) {
	cfg, err := userconfig.Load()
	if err != nil {
		return nil, err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	var kv kvstore.Store
	if cfg.StorageBackend == userconfig.BackendKeyring {
		kv = kvstore.NewKeyringStore(keyringService, log)
	} else {
		path, err := userconfig.SessionPath()
		if err != nil {
			return nil, err
		}
		kv = kvstore.NewFileStore(path, nil, log)
	}

	store := session.New(kv, log)
	store.Init()

	session.NewMigrator(kv, store, log).Run()

	unwatch := store.WatchChanges()
	bridge := session.NewBridge(session.ClientContext(), store, nil, false, log)
	api := client.New(cfg.ServerURL, bridge, log)

	// The periodic check matters for the interactive commands that sit in
	// a prompt long enough for the session to lapse.
	life := session.NewLifecycle(store, nil, log)
	life.Start()

	s := &stack{
		cfg:     cfg,
		kv:      kv,
		store:   store,
		bridge:  bridge,
		api:     api,
		life:    life,
		log:     log,
		unwatch: unwatch,
	}
	s.touch()
	return s, nil
}

// touch records user interaction for the inactivity timer.
func (s *stack) touch() {
	s.life.Touch()
}

func (s *stack) close() {
	s.life.Stop()
	s.unwatch()
}

// requireAuth fails fast when no usable token exists.
func (s *stack) requireAuth() error {
	if s.bridge.RequestToken() == "" {
		return fmt.Errorf("not logged in. Please run 'dayleaf login' first")
	}
	return nil
}

// renderAPIError translates the error envelope into terminal output and
// applies the 401 force-logout rule.
func (s *stack) renderAPIError(err error) error {
	apiErr, ok := client.AsAPIError(err)
	if !ok {
		return err
	}

	switch apiErr.Status {
	case 0:
		return fmt.Errorf("could not reach the server: %s", apiErr.Message)
	case 401:
		s.bridge.ClearAuthSnapshot()
		return fmt.Errorf("your session has expired. Please run 'dayleaf login' again")
	case 422:
		if len(apiErr.Errors) > 0 {
			fields := make([]string, 0, len(apiErr.Errors))
			for f := range apiErr.Errors {
				fields = append(fields, f)
			}
			sort.Strings(fields)
			for _, f := range fields {
				for _, msg := range apiErr.Errors[f] {
					fmt.Fprintf(os.Stderr, "  %s: %s\n", f, msg)
				}
			}
		}
		return fmt.Errorf("%s", apiErr.Message)
	case 429:
		return fmt.Errorf("slow down: %s", apiErr.Message)
	default:
		return fmt.Errorf("%s", apiErr.Message)
	}
}
