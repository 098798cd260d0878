package game

import (
	"hash/fnv"
	"math"
	"time"
)

const (
	DefaultWorldID = "default"
	WorldWidth     = 16
	WorldHeight    = 12
	VisionRadius   = 2.0
	MaxUnits       = 8
)

const (
	ActionNoop      = "noop"
	ActionSpawn     = "spawn"
	ActionMoveRight = "move_right"
	ActionMoveLeft  = "move_left"
	ActionMoveUp    = "move_up"
	ActionMoveDown  = "move_down"
	ActionReset     = "reset"
)

// actionCodes maps integer opcodes onto named actions. 2 and 3 follow the
// Atari Breakout convention (right, left).
var actionCodes = map[int]string{
	0: ActionNoop,
	1: ActionSpawn,
	2: ActionMoveRight,
	3: ActionMoveLeft,
	4: ActionMoveUp,
	5: ActionMoveDown,
}

// World is the authoritative state kept by the sandbox backend.
type World struct {
	ID         string      `json:"id"`
	Tick       uint64      `json:"tick"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	HeightMap  [][]float64 `json:"heightMap"`
	Units      []Unit      `json:"units"`
	LastAction string      `json:"lastAction,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

func NewWorld(id string) *World {
	world := &World{
		ID:     id,
		Width:  WorldWidth,
		Height: WorldHeight,
	}
	world.reset()
	return world
}

func (w *World) reset() {
	w.HeightMap = heightMap(w.ID, w.Width, w.Height)
	w.Units = []Unit{{
		Position: [2]float64{float64(w.Width / 2), float64(w.Height / 2)},
		Type:     "worker",
		Health:   100,
	}}
	w.LastAction = ""
}

// ResolveAction normalises an opcode to its named form.
func ResolveAction(a Action) (string, error) {
	if a.IsCode() {
		name, ok := actionCodes[a.Code()]
		if !ok {
			return "", ErrInvalidAction
		}
		return name, nil
	}
	switch a.Name() {
	case ActionNoop, ActionSpawn, ActionMoveRight, ActionMoveLeft, ActionMoveUp, ActionMoveDown, ActionReset:
		return a.Name(), nil
	}
	return "", ErrInvalidAction
}

// Apply advances the world by one tick.
func (w *World) Apply(a Action, now time.Time) error {
	name, err := ResolveAction(a)
	if err != nil {
		return err
	}

	switch name {
	case ActionSpawn:
		if len(w.Units) < MaxUnits {
			w.Units = append(w.Units, Unit{
				Position: [2]float64{float64(len(w.Units) % w.Width), 0},
				Type:     "worker",
				Health:   100,
			})
		}
	case ActionMoveRight:
		w.move(1, 0)
	case ActionMoveLeft:
		w.move(-1, 0)
	case ActionMoveUp:
		w.move(0, -1)
	case ActionMoveDown:
		w.move(0, 1)
	case ActionReset:
		w.reset()
	}

	w.Tick++
	w.LastAction = name
	w.UpdatedAt = now.UTC()
	return nil
}

func (w *World) move(dx, dy float64) {
	for i := range w.Units {
		pos := &w.Units[i].Position
		pos[0] = clamp(pos[0]+dx, 0, float64(w.Width-1))
		pos[1] = clamp(pos[1]+dy, 0, float64(w.Height-1))
	}
}

// Snapshot renders the world as the state clients receive.
func (w *World) Snapshot() *GameState {
	units := make([]Unit, len(w.Units))
	copy(units, w.Units)

	heights := make([][]float64, len(w.HeightMap))
	for y, row := range w.HeightMap {
		heights[y] = append([]float64(nil), row...)
	}

	state := &GameState{
		Minimap: &Minimap{
			HeightMap:     heights,
			VisibilityMap: w.visibility(),
		},
		Units:     units,
		Connected: true,
		Tick:      w.Tick,
	}
	if w.LastAction != "" {
		action := NamedAction(w.LastAction)
		state.CurrentAction = &action
	}
	return state
}

func (w *World) visibility() [][]float64 {
	grid := make([][]float64, w.Height)
	for y := range grid {
		grid[y] = make([]float64, w.Width)
		for x := range grid[y] {
			for _, u := range w.Units {
				if math.Hypot(u.Position[0]-float64(x), u.Position[1]-float64(y)) <= VisionRadius {
					grid[y][x] = 1
					break
				}
			}
		}
	}
	return grid
}

// heightMap is deterministic per world id so every backend replica agrees.
func heightMap(id string, width, height int) [][]float64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	seed := h.Sum64()

	grid := make([][]float64, height)
	for y := range grid {
		grid[y] = make([]float64, width)
		for x := range grid[y] {
			seed ^= seed << 13
			seed ^= seed >> 7
			seed ^= seed << 17
			grid[y][x] = float64(seed%1000) / 1000
		}
	}
	return grid
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
