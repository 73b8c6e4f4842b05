package race

import (
	"embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"racecore/internal/sim/events"
	"racecore/internal/sim/game"
)

// Game layer tile values.
const (
	TileAir   = 0
	TileSolid = 1
	TileBegin = 33
	TileEnd   = 34
)

// Entity indices, stored in the game layer offset by game.EntityOffset.
const (
	EntitySpawn     = 1
	EntitySpawnRed  = 2
	EntitySpawnBlue = 3
)

const TileSize = 32

//go:embed maps/*.yaml
var mapFS embed.FS

// Map is a loaded game layer.
type Map struct {
	Name   string
	Width  int
	Height int
	Tiles  []int
}

var _ game.Map = (*Map)(nil)

func (m *Map) GameLayer() (width, height int, tiles []int) { return m.Width, m.Height, m.Tiles }

// At returns the tile at tile coordinates. Outside the map is solid.
func (m *Map) At(x, y int) int {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return TileSolid
	}
	return m.Tiles[y*m.Width+x]
}

// TileAt returns the tile under a world position.
func (m *Map) TileAt(pos events.Vec2) int {
	return m.At(int(math.Floor(pos.X/TileSize)), int(math.Floor(pos.Y/TileSize)))
}

func (m *Map) Solid(pos events.Vec2) bool { return m.TileAt(pos) == TileSolid }

type mapFile struct {
	Name string   `yaml:"name"`
	Rows []string `yaml:"rows"`
}

var legend = map[rune]int{
	'.': TileAir,
	' ': TileAir,
	'#': TileSolid,
	'B': TileBegin,
	'E': TileEnd,
	'S': game.EntityOffset + EntitySpawn,
	'R': game.EntityOffset + EntitySpawnRed,
	'U': game.EntityOffset + EntitySpawnBlue,
}

// ParseMap decodes a YAML map whose rows draw the game layer, one rune per
// tile. Short rows are padded with air.
func ParseMap(b []byte) (*Map, error) {
	var f mapFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("map: %w", err)
	}
	if strings.TrimSpace(f.Name) == "" {
		return nil, fmt.Errorf("map: missing name")
	}
	if len(f.Rows) == 0 {
		return nil, fmt.Errorf("map %s: no rows", f.Name)
	}
	m := &Map{Name: f.Name, Height: len(f.Rows)}
	for _, row := range f.Rows {
		if n := len([]rune(row)); n > m.Width {
			m.Width = n
		}
	}
	m.Tiles = make([]int, m.Width*m.Height)
	for y, row := range f.Rows {
		for x, r := range []rune(row) {
			t, ok := legend[r]
			if !ok {
				return nil, fmt.Errorf("map %s: unknown tile %q at %d,%d", f.Name, r, x, y)
			}
			m.Tiles[y*m.Width+x] = t
		}
	}
	return m, nil
}

func LoadMap(path string) (*Map, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMap(b)
}

// BuiltinMap loads one of the maps compiled into the binary.
func BuiltinMap(name string) (*Map, error) {
	b, err := mapFS.ReadFile("maps/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("map %s: not found", name)
	}
	return ParseMap(b)
}
