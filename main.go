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

package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/experthub/InverterStarter/pkg/environment"
	"github.com/experthub/InverterStarter/pkg/logging"
	"github.com/experthub/InverterStarter/pkg/server"
	"github.com/experthub/InverterStarter/pkg/service"
	"github.com/experthub/InverterStarter/pkg/service/bridge"
	"github.com/experthub/InverterStarter/pkg/telemetry"
	"github.com/experthub/InverterStarter/pkg/ui"
)

const (
	projectName     = "Inverter Compressor Starter"
	defaultHTTPPort = 7130
	defaultSSHPort  = 7131
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

func main() {
	var levelFlag string
	var bridgeType string
	var signalPin, boostPin, indicatorPin int
	var serverHost string
	var httpPort, sshPort int
	var hostKeyPath string
	var mqttBroker, mqttTopic string
	var headless bool

	pflag.StringVarP(&levelFlag, "level", "l", "debug", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", "auto", "Type of bridge to use (auto|rpi|virtual)")
	defaultPins := bridge.DefaultPinConfig()
	pflag.IntVar(&signalPin, "signal-pin", defaultPins.SignalPin, "GPIO pin of the PWM signal line")
	pflag.IntVar(&boostPin, "boost-pin", defaultPins.BoostPin, "GPIO pin of the boost rail switch")
	pflag.IntVar(&indicatorPin, "indicator-pin", defaultPins.IndicatorPin, "GPIO pin of the status indicator")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the servers will listen on")
	pflag.IntVar(&httpPort, "http-port", defaultHTTPPort, "Port the HTTP server will listen on")
	pflag.IntVar(&sshPort, "ssh-port", defaultSSHPort, "Port the SSH front panel will listen on")
	pflag.StringVar(&hostKeyPath, "host-key", ".ssh/id_ed25519", "Path of the SSH host key")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL for telemetry (empty disables)")
	pflag.StringVar(&mqttTopic, "mqtt-topic", "", "MQTT topic for telemetry")
	pflag.BoolVar(&headless, "headless", false, "Do not run the local front panel")
	pflag.Parse()

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())

	var logWriter logging.MQTTWriter
	var logOut = logging.NewMultiWriter(zerolog.ConsoleWriter{Out: os.Stderr})
	if mqttBroker != "" {
		logWriter = logging.NewMQTTWriter(ctx)
		logOut = logging.NewMultiWriter(zerolog.ConsoleWriter{Out: os.Stderr}, logWriter)
	}
	logger := zerolog.New(logOut).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(levelFlag); err == nil {
		logger = logger.Level(level)
	}

	if bridgeType == "auto" {
		bridgeType = environment.AutoDetectBridgeType(logger)
	}
	pins := bridge.PinConfig{
		SignalPin:    signalPin,
		BoostPin:     boostPin,
		IndicatorPin: indicatorPin,
	}
	var br bridge.API
	var err error
	switch bridgeType {
	case "rpi":
		br, err = bridge.NewRaspberryPiBridge(pins)
		if err != nil {
			Exitf("Failed to initialize Raspberry Pi bridge: %v\n", err)
		}
	case "virtual":
		br, err = bridge.NewVirtualBridge()
		if err != nil {
			Exitf("Failed to initialize virtual bridge: %v\n", err)
		}
	default:
		Exitf("Unknown bridge type '%s' (auto|rpi|virtual)\n", bridgeType)
	}

	svc, err := service.NewService(service.Config{}, service.Dependencies{
		Logger: logger,
		Bridge: br,
	})
	if err != nil {
		Exitf("Failed to initialize Service: %v\n", err)
	}

	httpServer, err := server.New(server.Config{
		Host:        serverHost,
		HTTPPort:    httpPort,
		SSHPort:     sshPort,
		HostKeyPath: hostKeyPath,
	}, logger, ui.Builder{Service: svc}, svc)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	var publisher *telemetry.Publisher
	if mqttBroker != "" {
		publisher, err = telemetry.New(telemetry.Config{
			BrokerURL: mqttBroker,
			Topic:     mqttTopic,
			LogWriter: logWriter,
		}, logger, svc)
		if err != nil {
			Exitf("Failed to initialize telemetry: %v\n", err)
		}
	}

	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return svc.Run(ctx)
	})
	g.Go(func() error { return httpServer.Run(ctx) })
	if publisher != nil {
		g.Go(func() error { return publisher.Run(ctx) })
	}
	if !headless {
		g.Go(func() error {
			defer cancel()
			program := tea.NewProgram(ui.New(svc, os.Getenv("TERM")), tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return maskAny(err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %#v", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
