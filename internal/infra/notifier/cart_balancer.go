package notifier

import (
	"hash/fnv"

	"github.com/segmentio/kafka-go"
)

// CartBalancer partitions by the cart id message key. Cart ids are uuids,
// so the key is hashed before taking the modulo.
type CartBalancer struct {
	numPartitions int
}

var _ kafka.Balancer = (*CartBalancer)(nil)

func NewCartBalancer(numPartitions int) *CartBalancer {
	if numPartitions <= 0 {
		numPartitions = 1
	}
	return &CartBalancer{numPartitions: numPartitions}
}

func (c *CartBalancer) Balance(msg kafka.Message, partitions ...int) (partition int) {
	h := fnv.New32a()
	h.Write(msg.Key)
	v := int(h.Sum32() % uint32(c.numPartitions))

	if len(partitions) != 0 {
		return partitions[int(h.Sum32())%len(partitions)]
	}

	return v
}
