package portal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/dodgeball-server/event"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// fakeMQTTRouter records handler registrations.
type fakeMQTTRouter struct {
	m            sync.Mutex
	handlers     map[string]paho.MessageHandler
	unregistered []string
}

func newFakeMQTTRouter() *fakeMQTTRouter {
	return &fakeMQTTRouter{handlers: make(map[string]paho.MessageHandler)}
}

func (r *fakeMQTTRouter) RegisterHandler(topic string, handler paho.MessageHandler) {
	r.m.Lock()
	defer r.m.Unlock()
	r.handlers[topic] = handler
}

func (r *fakeMQTTRouter) UnregisterHandler(topic string) {
	r.m.Lock()
	defer r.m.Unlock()
	delete(r.handlers, topic)
	r.unregistered = append(r.unregistered, topic)
}

func (r *fakeMQTTRouter) publish(topic string, payload []byte) {
	r.m.Lock()
	handler, ok := r.handlers[topic]
	r.m.Unlock()
	if ok {
		handler(&paho.Publish{Topic: topic, Payload: payload})
	}
}

// RouterSuite tests router.
type RouterSuite struct {
	suite.Suite
	mqtt   *fakeMQTTRouter
	router *router
}

func (suite *RouterSuite) SetupTest() {
	suite.mqtt = newFakeMQTTRouter()
	suite.router = newRouter(zap.NewNop(), suite.mqtt)
}

func (suite *RouterSuite) TestForward() {
	lifetime, cancel := context.WithCancel(context.Background())
	defer cancel()
	forward := make(chan event.Event[any])
	suite.router.subscribe(lifetime, "t1", forward)
	go suite.mqtt.publish("t1", []byte(`{"hello":"world"}`))
	select {
	case e := <-forward:
		suite.Equal("t1", e.Publish.Topic, "should forward publish for topic")
	case <-time.After(time.Second):
		suite.Fail("should forward in time")
	}
}

func (suite *RouterSuite) TestMultipleSubscribers() {
	lifetime, cancel := context.WithCancel(context.Background())
	defer cancel()
	forwardA := make(chan event.Event[any], 1)
	forwardB := make(chan event.Event[any], 1)
	suite.router.subscribe(lifetime, "t1", forwardA)
	suite.router.subscribe(lifetime, "t1", forwardB)
	suite.mqtt.publish("t1", []byte("{}"))
	for _, forward := range []chan event.Event[any]{forwardA, forwardB} {
		select {
		case <-forward:
		case <-time.After(time.Second):
			suite.Fail("should forward to all subscribers in time")
		}
	}
}

func (suite *RouterSuite) TestUnsubscribeOnLifetimeDone() {
	lifetime, cancel := context.WithCancel(context.Background())
	forward := make(chan event.Event[any])
	suite.router.subscribe(lifetime, "t1", forward)
	cancel()
	suite.Eventually(func() bool {
		suite.mqtt.m.Lock()
		defer suite.mqtt.m.Unlock()
		return len(suite.mqtt.unregistered) == 1
	}, time.Second, 10*time.Millisecond, "should unregister mqtt handler")
}

func (suite *RouterSuite) TestAttachRegistersPending() {
	detached := newRouter(zap.NewNop(), nil)
	lifetime, cancel := context.WithCancel(context.Background())
	defer cancel()
	forward := make(chan event.Event[any], 1)
	detached.subscribe(lifetime, "t1", forward)
	suite.Empty(suite.mqtt.handlers, "should not register before attach")
	detached.attach(suite.mqtt)
	suite.mqtt.publish("t1", []byte("{}"))
	select {
	case <-forward:
	case <-time.After(time.Second):
		suite.Fail("should forward after attach")
	}
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}
