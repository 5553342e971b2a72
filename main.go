// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"analyzer/cmd"
	"analyzer/internal/analysis"
	"analyzer/internal/audio"
	"analyzer/internal/config"
	applog "analyzer/internal/log"
	"analyzer/internal/transport"
	"analyzer/internal/transport/udp"
	"analyzer/pkg/build"
)

// sessionPath persists the last used input device between runs.
const sessionPath = ".analyzer-session.yaml"

// main runs in three phases:
//
// 1. Startup (cold path): runtime setup, PortAudio init, argument parsing
// and one-off commands.
//
// 2. Capture (hot path): the analysis session consumes audio blocks while
// publishers ship results to the configured presentation sinks.
//
// 3. Shutdown (cold path): signal-driven teardown, recording finalization
// and device session persistence.
func main() {
	// Two OS threads cover the workload: one for the time-critical audio
	// callback, one for analysis and I/O.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	options, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if options.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}
	if options.Config == nil {
		// Help or version output already happened inside ParseArgs.
		return
	}
	cfg := options.Config

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	info := build.GetInfo()
	applog.Infof("%s %s (commit %s, built %s)", info.Name, info.Version, info.Commit, info.Time)

	// Reuse the previously selected device unless one was requested
	// explicitly.
	session := config.LoadDeviceSession(sessionPath)
	if cfg.Audio.AutoSelect && session.AutoSelect && cfg.Audio.InputDevice == config.DefaultDeviceID {
		cfg.Audio.InputDevice = session.LastDeviceID
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}

	saveDeviceSession(cfg)
}

// run wires the pipeline, starts it and blocks until a termination signal.
func run(cfg *config.Config) error {
	source := audio.NewInputStream(cfg.Audio)
	sess, err := analysis.NewSession(cfg, source)
	if err != nil {
		return err
	}

	var recorder *audio.Recorder
	if cfg.Recording.Enabled {
		recorder, err = audio.NewRecorder(cfg.Recording.OutputFile,
			cfg.Audio.SampleRate, cfg.Recording.BitDepth, cfg.Audio.BlockSize)
		if err != nil {
			return err
		}
		sess.SetRecorder(recorder)
	}

	if err := sess.Start(); err != nil {
		return err
	}

	transports := []transport.Transport{transport.NewLoggingTransport()}
	if cfg.Transport.WebSocketEnabled {
		transports = append(transports, transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr))
	}

	publisher, err := transport.NewPublisher(cfg.Transport.PublishInterval,
		sess.State(), sess.Spectrum(), transports...)
	if err != nil {
		sess.Stop()
		return err
	}
	publisher.Start()

	var udpPublisher *udp.Publisher
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			applog.Errorf("UDP publishing disabled: %v", err)
		} else {
			udpPublisher, err = udp.NewPublisher(cfg.Transport.PublishInterval, sender, sess.State())
			if err != nil {
				applog.Errorf("UDP publishing disabled: %v", err)
				sender.Close()
			} else {
				udpPublisher.Start()
			}
		}
	}

	applog.Infof("Analyzing. Press Ctrl+C to stop.")

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	if udpPublisher != nil {
		if err := udpPublisher.Close(); err != nil {
			applog.Warnf("Error closing UDP publisher: %v", err)
		}
	}
	if err := publisher.Close(); err != nil {
		applog.Warnf("Error closing publisher: %v", err)
	}
	if err := sess.Stop(); err != nil {
		applog.Warnf("Error stopping session: %v", err)
	}
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			applog.Warnf("Error finalizing recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
		}
	}
	return nil
}

// saveDeviceSession persists the device used by this run for the next start.
func saveDeviceSession(cfg *config.Config) {
	name := ""
	if device, err := audio.InputDevice(cfg.Audio.InputDevice); err == nil {
		name = device.Name
	}
	session := config.DeviceSession{
		LastDeviceID:   cfg.Audio.InputDevice,
		LastDeviceName: name,
		AutoSelect:     cfg.Audio.AutoSelect,
	}
	if err := config.SaveDeviceSession(sessionPath, session); err != nil {
		applog.Warnf("Could not persist device session: %v", err)
	}
}
