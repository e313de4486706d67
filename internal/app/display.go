package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sensor_events/internal/config"
	"github.com/relabs-tech/sensor_events/internal/event"
)

const (
	displayWidth  = 128
	displayHeight = 64
	displayLines  = 4
	lineHeight    = 13
)

// DisplayData holds the latest payload of the displayed sensor
type DisplayData struct {
	mu   sync.RWMutex
	last Payload
	have bool
	meta string // last meta event for the sensor
}

func (d *DisplayData) update(p Payload) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.Kind == "meta" {
		d.meta = p.What
		return
	}
	d.last = p
	d.have = true
}

// lines returns the text shown for the sensor: its name, then up to three
// values, or a waiting message before the first event.
func (d *DisplayData) lines(sensor event.SensorID) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := []string{sensor.String()}
	if !d.have {
		out = append(out, "Waiting...")
		if d.meta != "" {
			out = append(out, d.meta)
		}
		return out
	}
	for i, v := range d.last.Values {
		if len(out) == displayLines {
			break
		}
		out = append(out, fmt.Sprintf("%c: %9.3f", 'X'+rune(i), v))
	}
	return out
}

// renderLines draws up to four lines of 7x13 text on a blank frame.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i == displayLines {
			break
		}
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawBytes([]byte(line))
	}
	return img
}

// RunDisplay shows the latest values of DISPLAY_SENSOR on an SSD1306 until ctx
// is done.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized, showing %s", cfg.DisplaySensor)

	if err := dev.Draw(dev.Bounds(), renderLines([]string{"sensord", cfg.DisplaySensor.String()}), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var p Payload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("display: %s unmarshal error: %v", msg.Topic(), err)
			return
		}
		if p.Sensor != cfg.DisplaySensor.String() {
			return
		}
		data.update(p)
	}
	sensorTopic := cfg.TopicEvents + "/" + cfg.DisplaySensor.String()
	metaTopicName := cfg.TopicEvents + "/" + metaTopic
	for _, topic := range []string{sensorTopic, metaTopicName} {
		token := client.Subscribe(topic, 0, handler)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
		}
		log.Printf("display: subscribed to %s", topic)
	}

	ticker := time.NewTicker(cfg.DisplayInterval())
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			log.Println("display: shutting down")
			return dev.Halt()
		case <-ticker.C:
			img := renderLines(data.lines(cfg.DisplaySensor))
			if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}
