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

package logging

import (
	"context"
	"io"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTWriter ships log lines to an MQTT topic so a remote dashboard
// can tail the starter. Writes never block the logger; when the queue
// is full the oldest lines are dropped.
type MQTTWriter interface {
	io.Writer
	// Enable or disable shipping. Disabled writers accept and drop.
	Enable(enable bool)
	// SetDestination points the writer at a connected client.
	SetDestination(topic string, client mqtt.Client)
}

type mqttWriter struct {
	mutex  sync.Mutex
	queue  chan []byte
	topic  string
	client mqtt.Client
	enable bool
}

const (
	mqttQueueSize = 512
)

// NewMQTTWriter creates a new MQTT output for logs.
// The MQTT sender stops when the given context is canceled.
func NewMQTTWriter(ctx context.Context) MQTTWriter {
	w := &mqttWriter{
		queue: make(chan []byte, mqttQueueSize),
	}
	go w.run(ctx)
	return w
}

func (w *mqttWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	// The logger reuses its buffer after Write returns.
	line := make([]byte, len(p))
	copy(line, p)
	for attempt := 0; attempt < 10; attempt++ {
		select {
		case w.queue <- line:
			return len(p), nil
		default:
			// Queue full; take one out and try again
			select {
			case <-w.queue:
				// Continue
			default:
				// Also continue
			}
		}
	}
	// Ignore errors
	return len(p), nil
}

func (w *mqttWriter) Enable(enable bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.enable = enable
}

func (w *mqttWriter) SetDestination(topic string, client mqtt.Client) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.topic = topic
	w.client = client
}

func (w *mqttWriter) run(ctx context.Context) {
	for {
		w.mutex.Lock()
		client := w.client
		topic := w.topic
		enabled := w.enable
		w.mutex.Unlock()

		if enabled && topic != "" && client != nil && client.IsConnected() {
			select {
			case line := <-w.queue:
				client.Publish(topic, 0, false, line)
			case <-ctx.Done():
				return
			}
		} else {
			select {
			case <-time.After(time.Second):
				// Continue
			case <-ctx.Done():
				return
			}
		}
	}
}
