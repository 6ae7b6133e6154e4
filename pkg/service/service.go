// Copyright 2024 Expert Hub
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"context"
	"sync"
	"time"

	aggregateErrors "github.com/ewoutp/go-aggregate-error"
	"github.com/mattn/go-pubsub"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/experthub/InverterStarter/pkg/helptext"
	"github.com/experthub/InverterStarter/pkg/input"
	"github.com/experthub/InverterStarter/pkg/service/bridge"
	"github.com/experthub/InverterStarter/pkg/service/controller"
	"github.com/experthub/InverterStarter/pkg/service/countdown"
	"github.com/experthub/InverterStarter/pkg/service/indicator"
	"github.com/experthub/InverterStarter/pkg/service/output"
)

// Service runs the starter: the event loop, the navigation state
// machine and the hardware-output state machine behind it.
type Service interface {
	// Run the starter until the given context is canceled or the
	// operator long-presses Back.
	Run(ctx context.Context) error
	// HandleInput queues a key event for the event loop.
	HandleInput(ev input.Event)
	// Snapshot returns the latest runtime state.
	Snapshot() controller.Snapshot
	// SubscribeSnapshot registers a callback for state changes.
	// The returned function cancels the subscription.
	SubscribeSnapshot(cb func(controller.Snapshot)) (context.CancelFunc, error)
}

// Config for the Service.
type Config struct {
	// PollInterval bounds the input wait so timeout/expiry checks
	// and redraws happen even without operator input.
	// Defaults to 100ms.
	PollInterval time.Duration
	// CountdownTickInterval overrides the 1s countdown tick.
	// Used by tests; leave zero for production.
	CountdownTickInterval time.Duration
	// TimeScale divides mode timeouts. Used by tests; leave zero
	// (scale 1) for production.
	TimeScale int
}

// Dependencies of the Service.
type Dependencies struct {
	Logger zerolog.Logger
	Bridge bridge.API
}

type service struct {
	Config
	Dependencies

	runSem *semaphore.Weighted
	events chan input.Event

	ctrl      *controller.Controller
	countdown *countdown.Countdown
	snapshots *pubsub.PubSub

	mutex  sync.Mutex
	latest controller.Snapshot
}

// NewService creates a Service instance and returns it.
func NewService(conf Config, deps Dependencies) (Service, error) {
	if conf.PollInterval <= 0 {
		conf.PollInterval = 100 * time.Millisecond
	}
	if conf.TimeScale <= 0 {
		conf.TimeScale = 1
	}
	deps.Logger = deps.Logger.With().Str("component", "service").Logger()

	s := &service{
		Config:       conf,
		Dependencies: deps,
		runSem:       semaphore.NewWeighted(1),
		events:       make(chan input.Event, 8),
		snapshots:    pubsub.New(),
	}

	driver, err := output.New(deps.Logger, deps.Bridge)
	if err != nil {
		return nil, err
	}
	s.countdown = countdown.New(countdown.Config{
		TickInterval: conf.CountdownTickInterval,
	}, deps.Logger, s.requestRedraw)

	s.ctrl = controller.New(controller.Config{}, controller.Dependencies{
		Log:       deps.Logger,
		Driver:    driver,
		Indicator: indicator.New(deps.Logger, ledAdapter{deps.Bridge}),
		Countdown: scaledCountdown{s.countdown, conf.TimeScale},
		HelpLines: helptext.Lines,
		Publish:   s.publishSnapshot,
	})
	s.publishSnapshot(s.ctrl.Snapshot())
	return s, nil
}

// Run the event loop until the context is canceled or the operator
// long-presses Back.
func (s *service) Run(ctx context.Context) error {
	if !s.runSem.TryAcquire(1) {
		return errAlreadyRunning
	}
	defer s.runSem.Release(1)

	log := s.Logger
	log.Info().Msg("event loop started")
	defer s.cleanup(log)

	for {
		// React to an elapsed runtime limit before anything else.
		s.ctrl.CheckExpiry()

		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.events:
			if ev.Key == input.KeyBack && ev.Press == input.PressLong {
				log.Info().Msg("long back press, terminating")
				return nil
			}
			action := s.ctrl.HandleEvent(ev)
			if action.Exit {
				return nil
			}
			if action.Confirm != controller.DialogNone {
				accepted := s.runDialog(ctx, action.Confirm)
				s.ctrl.ResolveConfirm(action.Confirm, accepted)
			}
		case <-time.After(s.PollInterval):
			// Idle; loop to check expiry and redraws.
		}
	}
}

// HandleInput queues a key event for the event loop.
// Events are dropped when the queue is full.
func (s *service) HandleInput(ev input.Event) {
	select {
	case s.events <- ev:
	default:
		s.Logger.Warn().
			Str("key", ev.Key.String()).
			Str("press", ev.Press.String()).
			Msg("input queue full, event dropped")
	}
}

// Snapshot returns the latest runtime state.
func (s *service) Snapshot() controller.Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.latest
}

// SubscribeSnapshot registers a callback for state changes.
func (s *service) SubscribeSnapshot(cb func(controller.Snapshot)) (context.CancelFunc, error) {
	if err := s.snapshots.Sub(cb); err != nil {
		return nil, err
	}
	return func() {
		s.snapshots.Leave(cb)
	}, nil
}

// runDialog shows a blocking confirmation and waits for the operator.
// It owns the input channel while active, so the navigation state
// machine never sees the dialog keys; timer callbacks keep running
// unblocked meanwhile.
func (s *service) runDialog(ctx context.Context, d controller.Dialog) bool {
	s.ctrl.BeginConfirm(d)
	for {
		select {
		case <-ctx.Done():
			return false
		case ev := <-s.events:
			if ev.Press != input.PressShort {
				continue
			}
			switch ev.Key {
			case input.KeyConfirm:
				return true
			case input.KeyBack:
				return false
			case input.KeyUp, input.KeyDown:
				// Ignored while the dialog is up.
			}
		}
	}
}

// publishSnapshot stores the latest snapshot and fans it out.
func (s *service) publishSnapshot(snapshot controller.Snapshot) {
	s.mutex.Lock()
	s.latest = snapshot
	s.mutex.Unlock()
	s.snapshots.Pub(snapshot)
	redrawRequestsTotal.Inc()
}

// requestRedraw is handed to the countdown; ticks update the visible
// remaining-time readout.
func (s *service) requestRedraw() {
	s.publishSnapshot(s.ctrl.Snapshot())
}

// cleanup returns hardware and timers to the fail-safe state.
func (s *service) cleanup(log zerolog.Logger) {
	var ae aggregateErrors.AggregateError

	s.ctrl.Shutdown()
	s.countdown.Reset()
	if err := s.Bridge.Close(); err != nil {
		ae.Add(err)
	}
	if err := ae.AsError(); err != nil {
		log.Error().Err(err).Msg("cleanup failed")
		return
	}
	log.Info().Msg("cleanup done")
}

// ledAdapter exposes the bridge indicator as an indicator.LED.
type ledAdapter struct {
	bridge bridge.API
}

func (a ledAdapter) Set(on bool) error {
	return a.bridge.SetIndicatorLED(on)
}

// scaledCountdown divides armed durations by a scale factor.
// Production uses scale 1; tests compress minutes into milliseconds.
type scaledCountdown struct {
	*countdown.Countdown
	scale int
}

func (c scaledCountdown) Arm(d time.Duration) {
	c.Countdown.Arm(d / time.Duration(c.scale))
}
