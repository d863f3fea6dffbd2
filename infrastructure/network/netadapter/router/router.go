package router

import (
	"sync"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

const outgoingRouteMaxMessages = wire.MaxInvPerMsg + DefaultMaxMessages

// ErrNoRoute indicates that an incoming message's command has no route
// registered for it.
var ErrNoRoute = errors.New("no route for message")

// Router routes messages by command to their respective
// input channels
type Router struct {
	incomingRoutes     map[string]*Route
	incomingRoutesLock sync.RWMutex

	outgoingRoute *Route
}

// NewRouter creates a new empty router
func NewRouter() *Router {
	router := Router{
		incomingRoutes: make(map[string]*Route),
		outgoingRoute:  newRouteWithCapacity("outgoing", outgoingRouteMaxMessages),
	}
	return &router
}

// AddIncomingRoute registers the messages with the given `commands` to
// be routed to a new route called `name`
func (r *Router) AddIncomingRoute(name string, commands []string) (*Route, error) {
	return r.AddIncomingRouteWithCapacity(name, DefaultMaxMessages, commands)
}

// AddIncomingRouteWithCapacity registers the messages with the given `commands` to
// be routed to a new route called `name` with a capacity of `capacity`
func (r *Router) AddIncomingRouteWithCapacity(name string, capacity int, commands []string) (*Route, error) {
	r.incomingRoutesLock.Lock()
	defer r.incomingRoutesLock.Unlock()

	for _, command := range commands {
		if _, ok := r.incomingRoutes[command]; ok {
			return nil, errors.Errorf("a route for '%s' already exists", command)
		}
	}
	route := newRouteWithCapacity(name, capacity)
	for _, command := range commands {
		r.incomingRoutes[command] = route
	}
	return route, nil
}

// RemoveRoute unregisters the messages with the given `commands` from
// the router
func (r *Router) RemoveRoute(commands []string) error {
	r.incomingRoutesLock.Lock()
	defer r.incomingRoutesLock.Unlock()

	for _, command := range commands {
		if _, ok := r.incomingRoutes[command]; !ok {
			return errors.Errorf("a route for '%s' does not exist", command)
		}
	}
	for _, command := range commands {
		delete(r.incomingRoutes, command)
	}
	return nil
}

// EnqueueIncomingMessage enqueues the given message to the
// appropriate route
func (r *Router) EnqueueIncomingMessage(message wire.Message) error {
	route, ok := r.incomingRoute(message.Command())
	if !ok {
		return errors.Wrapf(ErrNoRoute, "a route for '%s' does not exist", message.Command())
	}
	return route.Enqueue(message)
}

// OutgoingRoute returns the outgoing route
func (r *Router) OutgoingRoute() *Route {
	return r.outgoingRoute
}

// Close shuts down the router by closing all registered
// incoming routes and the outgoing route
func (r *Router) Close() {
	r.incomingRoutesLock.Lock()
	defer r.incomingRoutesLock.Unlock()

	incomingRoutes := make(map[*Route]struct{})
	for _, route := range r.incomingRoutes {
		incomingRoutes[route] = struct{}{}
	}
	for route := range incomingRoutes {
		route.Close()
	}
	r.outgoingRoute.Close()
}

func (r *Router) incomingRoute(command string) (*Route, bool) {
	r.incomingRoutesLock.RLock()
	defer r.incomingRoutesLock.RUnlock()

	route, ok := r.incomingRoutes[command]
	return route, ok
}
