// internal/messaging/client.go
package messaging

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"robot-pipeline/internal/config"
	"robot-pipeline/internal/utils"
)

// NewMQTTClient 텔레메트리 미러용 MQTT 클라이언트 생성 및 연결
func NewMQTTClient(cfg *config.Config) (mqtt.Client, error) {
	utils.Logger.Infof("🏗️ CREATING MQTT Client")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetUsername(cfg.MQTTUsername)
	opts.SetPassword(cfg.MQTTPassword)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)

	// 연결 상태 콜백
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		utils.Logger.Info("MQTT client connected")
	})

	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		utils.Logger.Errorf("MQTT connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}

	utils.Logger.Infof("✅ MQTT Client CREATED")
	return client, nil
}
