// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/sensor_events/internal/config"
	"github.com/relabs-tech/sensor_events/internal/event"
	"github.com/relabs-tech/sensor_events/internal/store"
)

// controlQueue bounds control requests waiting for the read loop.
const controlQueue = 16

// RunProducer reads the configured sensors and publishes every event to MQTT,
// optionally logging them to SQLite. Requests on the control topic are
// applied between reads.
func RunProducer(ctx context.Context) error {
	log.Println("starting sensor event producer")

	cfg := config.Get()
	session := uuid.NewString()

	p, err := OpenPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	var st *store.Store
	if cfg.StorePath != "" {
		st, err = store.Open(cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()
		log.Printf("logging events to %s", cfg.StorePath)
	}

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("connected to MQTT broker at %s, session %s", cfg.MQTTBroker, session)

	controls := make(chan ControlMessage, controlQueue)
	if cfg.TopicControl != "" {
		token := client.Subscribe(cfg.TopicControl, 1, func(_ mqtt.Client, msg mqtt.Message) {
			m, err := ParseControl(msg.Payload())
			if err != nil {
				log.Warnf("%v", err)
				return
			}
			select {
			case controls <- m:
			default:
				log.Warnf("control queue full, dropping %s %s", m.Op, m.Sensor)
			}
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("MQTT subscribe %s: %w", cfg.TopicControl, token.Error())
		}
		log.Printf("subscribed to control topic %s", cfg.TopicControl)
	}

	if err := p.Start(cfg.EnabledSensors, cfg.PollDelay()); err != nil {
		return err
	}

	return p.Run(ctx, controls, func(ev event.Event) {
		width := p.Table.Width(ev.Sensor)
		payload, err := NewPayload(session, ev, width).Marshal()
		if err != nil {
			log.Printf("json marshal error (%s): %v", ev.Sensor, err)
			return
		}
		topic := EventTopic(cfg.TopicEvents, ev)
		if token := client.Publish(topic, 0, ev.Kind == event.KindData, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (%s): %v", topic, token.Error())
		}
		if st != nil {
			if err := st.Append(ctx, session, ev, width); err != nil {
				log.Warnf("event log: %v", err)
			}
		}
	})
}

// RunDump reads the configured sensors and writes every event to w as one
// JSON object per line, without MQTT.
func RunDump(ctx context.Context, w io.Writer) error {
	cfg := config.Get()
	p, err := OpenPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Start(cfg.EnabledSensors, cfg.PollDelay()); err != nil {
		return err
	}
	return dump(ctx, p, uuid.NewString(), w)
}

func dump(ctx context.Context, p *Pipeline, session string, w io.Writer) error {
	enc := json.NewEncoder(w)
	return p.Run(ctx, nil, func(ev event.Event) {
		if err := enc.Encode(NewPayload(session, ev, p.Table.Width(ev.Sensor))); err != nil {
			log.Warnf("dump: %v", err)
		}
	})
}
