/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MQTT is a Couplings for an MQTT broker.
//
// A message on a subscribed topic is a JSON Input or else a chunk.
// With ModuleFromTopic, the last segment of the topic names the
// module when the Input doesn't.  Outputs are published as JSON to
// OutTopic.
type MQTT struct {
	Client    mqtt.Client
	Quiesce   uint
	SubTopics string

	// OutTopic is the topic (optionally "TOPIC:QOS") for
	// Outputs.
	OutTopic string

	ModuleFromTopic bool

	InTimeout time.Duration

	Logger *zap.Logger

	incoming chan *Input
	outbound chan *Output
	wg       sync.WaitGroup
}

// NewMQTT makes MQTT couplings with a new client for the broker.  An
// empty client id gets a random one.
func NewMQTT(ctx context.Context, broker, clientId string, logger *zap.Logger) *MQTT {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clientId == "" {
		clientId = "chunks-" + uuid.NewString()
	}

	c := &MQTT{
		Quiesce:   100,
		OutTopic:  "chunks/out",
		InTimeout: 5 * time.Second,
		Logger:    logger,
		incoming:  make(chan *Input),
		outbound:  make(chan *Output),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientId)
	opts.SetKeepAlive(time.Minute)
	opts.SetPingTimeout(10 * time.Second)
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	}
	opts.DefaultPublishHandler = func(client mqtt.Client, msg mqtt.Message) {
		c.consume(ctx, msg.Topic(), msg.Payload())
	}
	c.Client = mqtt.NewClient(opts)

	return c
}

func (c *MQTT) consume(ctx context.Context, topic string, payload []byte) {
	in, err := parseLine(strings.TrimSpace(string(payload)))
	if err != nil {
		c.Logger.Warn("MQTT payload", zap.String("topic", topic), zap.Error(err))
		return
	}
	if c.ModuleFromTopic && in.Module == "" {
		parts := strings.Split(topic, "/")
		in.Module = parts[len(parts)-1]
	}

	to := time.NewTimer(c.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
	case c.incoming <- in:
		c.Logger.Debug("MQTT forwarded", zap.String("topic", topic))
	case <-to.C:
		c.Logger.Warn("MQTT input stalled", zap.String("topic", topic), zap.ByteString("payload", payload))
	}
}

// Start connects to the broker and subscribes.
func (c *MQTT) Start(ctx context.Context) error {
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	c.Logger.Info("MQTT connected")

	for _, topic := range strings.Split(c.SubTopics, ",") {
		topic, qos := parseTopic(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		if t := c.Client.Subscribe(topic, qos, nil); t.Wait() && t.Error() != nil {
			return t.Error()
		}
		c.Logger.Info("MQTT subscribed", zap.String("topic", topic), zap.Int("qos", int(qos)))
	}

	return nil
}

// IO starts a loop to publish Outputs.  MQTT input never ends, so
// the done channel is nil.
func (c *MQTT) IO(ctx context.Context) (chan *Input, chan *Output, chan bool, error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.outLoop(ctx)
	}()
	return c.incoming, c.outbound, nil, nil
}

func (c *MQTT) outLoop(ctx context.Context) {
	topic, qos := parseTopic(c.OutTopic)
	for {
		select {
		case <-ctx.Done():
			return
		case o := <-c.outbound:
			if o == nil {
				return
			}
			js, err := json.Marshal(o)
			if err != nil {
				c.Logger.Error("MQTT marshal", zap.Error(err))
				continue
			}
			token := c.Client.Publish(topic, qos, false, js)
			token.Wait()
			if err := token.Error(); err != nil {
				c.Logger.Error("MQTT publish", zap.String("topic", topic), zap.Error(err))
			}
		}
	}
}

// Stop terminates the MQTT session.
func (c *MQTT) Stop(context.Context) error {
	c.Logger.Info("MQTT disconnecting")
	if c.Client.IsConnected() {
		c.Client.Disconnect(c.Quiesce)
	}
	c.wg.Wait()
	return nil
}

// parseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	var topic string
	var qos byte
	if _, err := fmt.Sscanf(strings.Replace(s, ":", " ", 1), "%s %d", &topic, &qos); err == nil {
		return topic, qos
	}
	return s, 0
}
