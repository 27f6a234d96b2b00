package service

import (
	"context"
	"encoding/json"
	"errors"

	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	chatbot    IChatbotService
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	chatbot IChatbotService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		chatbot:    chatbot,
		logger:     log,
	}
}

// Consume starts processing reply jobs until ctx is cancelled. Jobs run
// concurrently so replies land in completion order.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			go cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var job dto.GenerateReplyJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal reply job", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // malformed jobs never succeed
		return
	}

	cs.logger.Debug("CONSUMER", "Generating reply", map[string]interface{}{
		"assistant_id": job.AssistantId,
		"message_id":   job.MessageId,
	})

	if _, err := cs.chatbot.GenerateReply(ctx, job); err != nil {
		if errors.Is(err, entity.ErrAssistantNotFound) || ctx.Err() != nil {
			msg.Ack()
			return
		}
		msg.Nack()
		return
	}
	msg.Ack()
}
