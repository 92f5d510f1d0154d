package lib

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

const BookingEventsTopic = "booking-status-updates"

var kafkaProducer *kafka.Producer

func getKafkaProducer() (*kafka.Producer, error) {
	if kafkaProducer != nil {
		return kafkaProducer, nil
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"client.id":         "bookingProducer",
		"acks":              "all",
	})
	if err != nil {
		log.Printf("Error initializing kafka producer: %s\n", err.Error())
		return nil, err
	}
	kafkaProducer = p
	return p, nil
}

// KafkaProduceMessage publishes a JSON payload to the topic. Delivery
// is fire-and-forget; booking state already lives in the database and
// the stream is a secondary feed for downstream consumers.
func KafkaProduceMessage(topic string, payload any) error {
	p, err := getKafkaProducer()
	if err != nil {
		return err
	}
	value, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error serializing kafka payload: %s\n", err.Error())
		return err
	}
	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, nil)
	if err != nil {
		log.Printf("Error producing to %s: %s\n", topic, err.Error())
		return err
	}
	return nil
}

func KafkaCreateTopics(topics ...string) ([]kafka.TopicResult, error) {
	a, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
	})
	if err != nil {
		log.Printf("Error on AdminClient: %s\n", err.Error())
		return nil, err
	}
	topicsDef := []kafka.TopicSpecification{}
	for _, topic := range topics {
		topicsDef = append(topicsDef, kafka.TopicSpecification{
			Topic:         topic,
			NumPartitions: 10,
		})
	}
	result, err := a.CreateTopics(context.Background(), topicsDef)
	if err != nil {
		log.Printf("Error creating topics: %s\n", err.Error())
		return nil, err
	}
	return result, nil
}
