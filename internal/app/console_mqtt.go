package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/sensor_events/internal/config"
)

// formatPayload renders one event as a console line.
func formatPayload(p Payload) string {
	if p.Kind == "meta" {
		return fmt.Sprintf("[META] %-20s %s", p.Sensor, p.What)
	}
	vals := make([]string, len(p.Values))
	for i, v := range p.Values {
		vals[i] = fmt.Sprintf("%9.4f", v)
	}
	return fmt.Sprintf("[DATA] %-20s t=%d.%09d %s", p.Sensor, p.Timestamp/1_000_000_000, p.Timestamp%1_000_000_000, strings.Join(vals, " "))
}

// RunConsoleMQTT prints every event published under the events topic until
// ctx is done.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	topic := cfg.TopicEvents + "/#"
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p Payload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("console: %s unmarshal error: %v", msg.Topic(), err)
			return
		}
		fmt.Println(formatPayload(p))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", topic)

	<-ctx.Done()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
