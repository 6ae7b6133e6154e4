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

package telemetry

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/experthub/InverterStarter/pkg/logging"
	"github.com/experthub/InverterStarter/pkg/service/controller"
	"github.com/experthub/InverterStarter/pkg/service/util"
)

// Config for the Publisher.
type Config struct {
	// BrokerURL of the MQTT broker (e.g. tcp://host:1883).
	// Empty disables telemetry.
	BrokerURL string
	// Topic to publish state messages on.
	// Defaults to "inverter-starter/status".
	Topic string
	// ClientID used on the broker.
	// Defaults to "inverter-starter".
	ClientID string
	// LogWriter, when set, ships log lines over the same connection
	// on <Topic>/logs.
	LogWriter logging.MQTTWriter
}

// Source yields the snapshots the publisher reports.
type Source interface {
	Snapshot() controller.Snapshot
	SubscribeSnapshot(cb func(controller.Snapshot)) (context.CancelFunc, error)
}

// Publisher pushes every state change to an MQTT broker as a retained
// JSON message, so an external dashboard always sees the last state.
type Publisher struct {
	Config
	log    zerolog.Logger
	source Source
}

// New configures a new Publisher.
func New(cfg Config, log zerolog.Logger, source Source) (*Publisher, error) {
	if cfg.BrokerURL == "" {
		return nil, errors.New("BrokerURL is empty")
	}
	if cfg.Topic == "" {
		cfg.Topic = "inverter-starter/status"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "inverter-starter"
	}
	return &Publisher{
		Config: cfg,
		log:    log.With().Str("component", "telemetry").Logger(),
		source: source,
	}, nil
}

// Run publishes until the given context is canceled.
// Broker failures reconnect with backoff.
func (p *Publisher) Run(ctx context.Context) error {
	return util.UntilCanceled(ctx, p.log, "telemetry publisher", func() error {
		return p.runSession(ctx)
	})
}

// runSession runs one broker connection until it fails or the context
// is canceled.
func (p *Publisher) runSession(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(p.BrokerURL).
		SetClientID(p.ClientID).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return errors.Wrap(token.Error(), "failed to connect to broker")
	}
	defer client.Disconnect(250)
	p.log.Info().Str("broker", p.BrokerURL).Msg("connected to broker")
	if p.LogWriter != nil {
		p.LogWriter.SetDestination(p.Topic+"/logs", client)
		p.LogWriter.Enable(true)
		defer p.LogWriter.Enable(false)
	}

	snapshots := make(chan controller.Snapshot, 16)
	unsub, err := p.source.SubscribeSnapshot(func(snap controller.Snapshot) {
		select {
		case snapshots <- snap:
		default:
			// Slow broker; drop intermediate states.
		}
	})
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to snapshots")
	}
	defer unsub()

	// Publish the current state right away, then on every change.
	if err := p.publish(client, p.source.Snapshot()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-snapshots:
			if err := p.publish(client, snap); err != nil {
				return err
			}
		}
	}
}

func (p *Publisher) publish(client mqtt.Client, snap controller.Snapshot) error {
	payload, err := json.Marshal(newMessage(snap, time.Now()))
	if err != nil {
		return errors.Wrap(err, "failed to encode state message")
	}
	token := client.Publish(p.Topic, 0, true, payload)
	if token.Wait() && token.Error() != nil {
		return errors.Wrap(token.Error(), "failed to publish state message")
	}
	messagesPublishedTotal.Inc()
	return nil
}

// message is the wire shape of a state message.
type message struct {
	Time         string `json:"time"`
	Screen       string `json:"screen"`
	Profile      string `json:"profile"`
	Energized    bool   `json:"energized"`
	ActiveMode   int    `json:"activeMode"`
	LimitRuntime bool   `json:"limitRuntime"`
	RemainingSec int    `json:"remainingSec"`
}

func newMessage(snap controller.Snapshot, now time.Time) message {
	return message{
		Time:         now.UTC().Format(time.RFC3339),
		Screen:       snap.Screen.String(),
		Profile:      snap.Profile.String(),
		Energized:    snap.Energized,
		ActiveMode:   snap.ActiveMode,
		LimitRuntime: snap.LimitRuntime,
		RemainingSec: int(snap.Remaining / time.Second),
	}
}
