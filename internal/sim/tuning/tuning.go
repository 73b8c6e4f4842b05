package tuning

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type param struct {
	name string
	def  float64
}

// Declaration order is the wire order of SV_TUNEPARAMS.
var params = []param{
	{"ground_control_speed", 10.0},
	{"ground_control_accel", 2.0},
	{"ground_friction", 0.5},
	{"ground_jump_impulse", 13.2},
	{"air_jump_impulse", 12.0},
	{"air_control_speed", 5.0},
	{"air_control_accel", 1.5},
	{"air_friction", 0.95},
	{"hook_length", 380.0},
	{"hook_fire_speed", 80.0},
	{"hook_drag_accel", 3.0},
	{"hook_drag_speed", 15.0},
	{"gravity", 0.5},
	{"velramp_start", 550},
	{"velramp_range", 2000},
	{"velramp_curvature", 1.4},
	{"gun_curvature", 1.25},
	{"gun_speed", 2200.0},
	{"gun_lifetime", 2.0},
	{"shotgun_curvature", 1.25},
	{"shotgun_speed", 2750.0},
	{"shotgun_speeddiff", 0.8},
	{"shotgun_lifetime", 0.20},
	{"grenade_curvature", 7.0},
	{"grenade_speed", 1000.0},
	{"grenade_lifetime", 2.0},
	{"laser_reach", 800.0},
	{"laser_bounce_delay", 150},
	{"laser_bounce_num", 1},
	{"laser_bounce_cost", 0},
	{"laser_damage", 5},
	{"player_collision", 1},
	{"player_hooking", 1},
}

var index = func() map[string]int {
	m := make(map[string]int, len(params))
	for i, p := range params {
		m[p.name] = i
	}
	return m
}()

// Params holds physics tuning as fixed-point values (x100), so two
// Params compare equal exactly when every parameter matches.
type Params struct {
	values [33]int
}

func toFixed(v float64) int { return int(math.Round(v * 100)) }

func Defaults() Params {
	var p Params
	for i, d := range params {
		p.values[i] = toFixed(d.def)
	}
	return p
}

func Num() int { return len(params) }

func Name(i int) string { return params[i].name }

// Set changes one parameter by name. It reports false for unknown names.
func (p *Params) Set(name string, v float64) bool {
	i, ok := index[name]
	if !ok {
		return false
	}
	p.values[i] = toFixed(v)
	return true
}

func (p Params) Get(name string) (float64, bool) {
	i, ok := index[name]
	if !ok {
		return 0, false
	}
	return p.Value(i), true
}

func (p Params) Value(i int) float64 { return float64(p.values[i]) / 100 }

// Ints returns the fixed-point values in wire order.
func (p Params) Ints() []int {
	out := make([]int, len(params))
	copy(out, p.values[:len(params)])
	return out
}

func (p Params) Equal(o Params) bool { return p == o }

// UnmarshalYAML reads a name -> value mapping on top of the defaults.
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	raw := map[string]float64{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	out := Defaults()
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !out.Set(name, raw[name]) {
			return fmt.Errorf("unknown tuning parameter %q", name)
		}
	}
	*p = out
	return nil
}

func (p Params) MarshalYAML() (any, error) {
	m := make(map[string]float64, len(params))
	for i, d := range params {
		m[d.name] = p.Value(i)
	}
	return m, nil
}

type Tuning struct {
	Params Params `yaml:"params"`
}

func Load(path string) (Tuning, error) {
	t := Tuning{Params: Defaults()}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
