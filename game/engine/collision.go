package engine

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"
)

const (
	collisionTypePlayer cp.CollisionType = iota + 1
	collisionTypeObstacle
)

// collisionWorld owns the Chipmunk space used to detect sprite overlaps.
// Every collidable sprite is a sensor box, so the space reports contacts
// without pushing bodies apart.
type collisionWorld struct {
	space         *cp.Space
	bodies        map[string]*cp.Body
	shapeToSprite map[*cp.Shape]string
	queue         []CollisionEvent
}

func newCollisionWorld() *collisionWorld {
	space := cp.NewSpace()
	space.SetGravity(cp.Vector{})

	w := &collisionWorld{
		space:         space,
		bodies:        make(map[string]*cp.Body),
		shapeToSprite: make(map[*cp.Shape]string),
	}
	w.setupHandlers()
	return w
}

// buildCollisionWorld creates a world holding every collidable sprite in state
func buildCollisionWorld(state *GameState, config *GameConfig) *collisionWorld {
	w := newCollisionWorld()
	labels := make([]string, 0, len(state.Sprites))
	for label, sprite := range state.Sprites {
		if sprite.Collision {
			labels = append(labels, label)
		}
	}
	// Insertion order decides callback order, keep it stable
	sort.Strings(labels)
	for _, label := range labels {
		size, ok := config.colliderFor(label)
		if !ok {
			continue
		}
		w.add(state.Sprites[label], size)
	}
	return w
}

func (w *collisionWorld) add(sprite *Sprite, size Vec2) {
	scale := sprite.Scale
	if scale <= 0 {
		scale = 1
	}

	body := cp.NewBody(1, math.Inf(1))
	body.SetPosition(cp.Vector{X: sprite.Translation.X, Y: sprite.Translation.Y})
	body.SetAngle(sprite.Rotation)

	shape := cp.NewBox(body, size.X*scale, size.Y*scale, 0)
	shape.SetSensor(true)
	if sprite.Label == PlayerLabel {
		shape.SetCollisionType(collisionTypePlayer)
	} else {
		shape.SetCollisionType(collisionTypeObstacle)
	}

	w.space.AddBody(body)
	w.space.AddShape(shape)
	w.bodies[sprite.Label] = body
	w.shapeToSprite[shape] = sprite.Label
}

func (w *collisionWorld) setupHandlers() {
	begin := func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		world, ok := userData.(*collisionWorld)
		if !ok || world == nil {
			return true
		}
		world.record(arb, CollisionBegin)
		return true
	}
	separate := func(arb *cp.Arbiter, space *cp.Space, userData interface{}) {
		world, ok := userData.(*collisionWorld)
		if !ok || world == nil {
			return
		}
		world.record(arb, CollisionEnd)
	}

	for _, pair := range [][2]cp.CollisionType{
		{collisionTypePlayer, collisionTypeObstacle},
		{collisionTypeObstacle, collisionTypeObstacle},
	} {
		handler := w.space.NewCollisionHandler(pair[0], pair[1])
		handler.UserData = w
		handler.BeginFunc = begin
		handler.SeparateFunc = separate
	}
}

func (w *collisionWorld) record(arb *cp.Arbiter, state CollisionState) {
	shapeA, shapeB := arb.Shapes()
	labelA, okA := w.shapeToSprite[shapeA]
	labelB, okB := w.shapeToSprite[shapeB]
	if !okA || !okB {
		return
	}
	w.queue = append(w.queue, CollisionEvent{State: state, Pair: NewCollisionPair(labelA, labelB)})
}

// sync copies sprite transforms into the physics bodies
func (w *collisionWorld) sync(sprites map[string]*Sprite) {
	for label, body := range w.bodies {
		sprite, ok := sprites[label]
		if !ok {
			continue
		}
		body.SetPosition(cp.Vector{X: sprite.Translation.X, Y: sprite.Translation.Y})
		body.SetAngle(sprite.Rotation)
		body.SetVelocity(0, 0)
	}
}

// step runs collision detection for one frame
func (w *collisionWorld) step(dt float64) {
	w.space.Step(dt)
}

// drain returns and clears the queued events, ordered by pair then state
func (w *collisionWorld) drain() []CollisionEvent {
	events := w.queue
	w.queue = nil
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Pair != events[j].Pair {
			return events[i].Pair[0]+"|"+events[i].Pair[1] < events[j].Pair[0]+"|"+events[j].Pair[1]
		}
		return events[i].State.IsEnd() && events[j].State.IsBegin()
	})
	return events
}
