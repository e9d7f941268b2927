// Package notify delivers post-checkout notifications through a local actor.
// Messages are fire-and-forget; a slow or failing notification channel can
// never stall or abort an order.
package notify

import (
	"fmt"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type OrderPlaced struct {
	OrderID     uint
	UserID      uint
	TotalAmount float64
}

type OrderCancelled struct {
	OrderID uint
	UserID  uint
}

type notificationActor struct {
	logger *zap.Logger
}

func (a *notificationActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *OrderPlaced:
		a.logger.Info("Sending order confirmation",
			zap.Uint("order_id", msg.OrderID),
			zap.Uint("user_id", msg.UserID),
			zap.Float64("total_amount", msg.TotalAmount))

	case *OrderCancelled:
		a.logger.Info("Sending cancellation notice",
			zap.Uint("order_id", msg.OrderID),
			zap.Uint("user_id", msg.UserID))

	case *actor.Started:
		a.logger.Info("Notification actor started")

	case *actor.Stopping:
		a.logger.Info("Notification actor stopping")

	case *actor.Stopped:
		a.logger.Info("Notification actor stopped")
	}
}

type Notifier struct {
	system *actor.ActorSystem
	pid    *actor.PID
}

func NewNotifier(logger *zap.Logger) (*Notifier, error) {
	system := actor.NewActorSystem()

	props := actor.PropsFromProducer(func() actor.Actor {
		return &notificationActor{logger: logger.Named("notification-actor")}
	})
	pid, err := system.Root.SpawnNamed(props, "notification-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn notification actor: %w", err)
	}

	return &Notifier{system: system, pid: pid}, nil
}

func (n *Notifier) OrderPlaced(orderID, userID uint, totalAmount float64) {
	n.system.Root.Send(n.pid, &OrderPlaced{OrderID: orderID, UserID: userID, TotalAmount: totalAmount})
}

func (n *Notifier) OrderCancelled(orderID, userID uint) {
	n.system.Root.Send(n.pid, &OrderCancelled{OrderID: orderID, UserID: userID})
}

func (n *Notifier) Close() {
	n.system.Root.Stop(n.pid)
	n.system.Shutdown()
}
