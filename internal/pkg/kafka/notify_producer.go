package kafka

import (
	"ShopTalk/internal/api/config"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// InboundFact 入站消息事实，不决定通知的具体呈现方式
type InboundFact struct {
	ShopID    string `json:"shop_id"`
	SessionID string `json:"session_id"`
	Preview   string `json:"preview"`
	Sender    string `json:"sender"`
}

// NotifyProducer 将入站消息事实投递到通知主题
type NotifyProducer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewNotifyProducer 构造函数
func NewNotifyProducer(cfg *config.Config) (*NotifyProducer, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &NotifyProducer{
		producer: producer,
		topic:    cfg.Kafka.NotifyTopic,
	}, nil
}

// Emit 发布一条事实，失败只记录日志，不阻断消息主链路
func (s *NotifyProducer) Emit(fact *InboundFact) {
	data, err := json.Marshal(fact)
	if err != nil {
		log.Error("通知事实序列化失败", "err", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(fact.SessionID),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err = s.producer.SendMessage(msg); err != nil {
		log.Error("通知事实投递失败", "session", fact.SessionID, "err", err)
	}
}

// Close 关闭底层生产者
func (s *NotifyProducer) Close() error {
	return s.producer.Close()
}
