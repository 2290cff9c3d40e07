package devices

import (
	"testing"
)

func TestPinChangePublisherDeliversInSubscriptionOrder(t *testing.T) {
	var p pinChangePublisher

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		p.Subscribe(func(PinChange) {
			order = append(order, i)
		})
	}
	p.Publish(PinChange{Pin: 1, Value: true})

	if len(order) != 3 {
		t.Fatalf("Expected 3 deliveries, got %d", len(order))
	}
	for i, x := range order {
		if x != i {
			t.Fatalf("Subscriber %d was called at position %d", x, i)
		}
	}
}

func TestPinChangePublisherCancel(t *testing.T) {
	var p pinChangePublisher

	count := 0
	cancel := p.Subscribe(func(PinChange) {
		count++
	})
	p.Publish(PinChange{Pin: 0, Value: true})
	cancel()
	p.Publish(PinChange{Pin: 0, Value: false})

	if count != 1 {
		t.Fatalf("Expected 1 delivery, got %d", count)
	}
}
