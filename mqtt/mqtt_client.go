package mqtt

import (
	"context"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"
)

const connectionTimeoutSeconds = 5
const publishTimeoutSeconds = 4

type Publisher interface {
	Publish(topic string, payload []byte) error
}

type MqttClient struct {
	config       autopaho.ClientConfig
	conn         *autopaho.ConnectionManager
	cancel       context.CancelFunc
	awaitTimeout time.Duration
	logger       *log.Logger
}

// Publish sends retained QoS 1 message, so subscribers get last state on connect.
func (mc *MqttClient) Publish(topic string, payload []byte) (err error) {
	if mc.conn == nil {
		return errors.New("mqtt client not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeoutSeconds*time.Second)
	defer cancel()

	_, err = mc.conn.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     1,
		Retain:  true,
		Payload: payload,
	})
	return errors.Wrapf(err, "failed to publish to %s", topic)
}

func (mc *MqttClient) onConnUp(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
	mc.logger.Info("Connected to MQTT broker")
}

func (mc *MqttClient) onConnError(err error) {
	mc.logger.Error("Received Mqtt connection error", "err", err)
}

func (mc *MqttClient) onSrvDisconnect(d *paho.Disconnect) {
	mc.logger.Info("Disconnected from MQTT broker", "reason", d.ReasonCode)
}

func (mc *MqttClient) Connect(ctx context.Context) (err error) {
	// connection manager keeps retrying in background until connCtx is cancelled
	var connCtx context.Context
	connCtx, mc.cancel = context.WithCancel(ctx)

	mc.logger.Debug("NewConnection")
	mc.conn, err = autopaho.NewConnection(connCtx, mc.config)
	if err != nil {
		mc.cancel()
		return errors.Wrap(err, "failed to create mqtt connection")
	}

	awaitCtx, cancel := context.WithTimeout(ctx, mc.awaitTimeout)
	defer cancel()

	mc.logger.Debug("AwaitConnection")
	err = mc.conn.AwaitConnection(awaitCtx)
	mc.logger.Debug("AwaitConnection done", "err", err)
	if err != nil {
		mc.cancel()
		return errors.Wrap(err, "mqtt broker not reachable")
	}

	return
}

func (mc *MqttClient) Disconnect(ctx context.Context) (err error) {
	if mc.conn == nil {
		return nil
	}

	err = mc.conn.Disconnect(ctx)
	mc.cancel()
	return
}

func NewMqttClient(broker string, clientId string) (mc *MqttClient, err error) {
	addr, err := url.Parse(broker)
	if err != nil {
		err = errors.Wrapf(err, "invalid mqtt broker url %s", broker)
		return
	}

	mc = &MqttClient{
		awaitTimeout: connectionTimeoutSeconds * time.Second,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "MqttClient: ",
			Level:  log.GetLevel(),
		}),
	}

	mc.config = autopaho.ClientConfig{
		ServerUrls:            []*url.URL{addr},
		KeepAlive:             20,
		SessionExpiryInterval: 60,
		OnConnectionUp:        mc.onConnUp,
		OnConnectError:        mc.onConnError,
		ClientConfig: paho.ClientConfig{
			ClientID:           clientId,
			OnClientError:      mc.onConnError,
			OnServerDisconnect: mc.onSrvDisconnect,
		},
	}

	return
}
