package campaign

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed maps/theater.yaml
var theaterYAML []byte

var (
	defaultMapOnce sync.Once
	defaultMapInst *TheaterMap
)

// DefaultMap returns the built-in two-theater map. The map is parsed once
// and cached; callers must not mutate it.
func DefaultMap() *TheaterMap {
	defaultMapOnce.Do(func() {
		m, err := LoadMap(theaterYAML)
		if err != nil {
			panic("campaign: embedded map is invalid: " + err.Error())
		}
		defaultMapInst = m
	})
	return defaultMapInst
}

// TheaterMap is the YAML-backed Graph implementation.
type TheaterMap struct {
	name     string
	regions  map[RegionID]*RegionInfo
	order    []RegionID
	land     map[RegionID][]RegionID
	sea      map[RegionID][]RegionID
	straits  map[RegionID][]Strait
	scenario Scenario
}

type mapFile struct {
	Name    string `yaml:"name"`
	Victory struct {
		Axis struct {
			Europe  int `yaml:"europe"`
			Pacific int `yaml:"pacific"`
		} `yaml:"axis"`
		AlliesCapitals []string `yaml:"allies_capitals"`
	} `yaml:"victory"`
	Regions []struct {
		ID            string   `yaml:"id"`
		Name          string   `yaml:"name"`
		Kind          string   `yaml:"kind"`
		Theater       string   `yaml:"theater"`
		IPC           int      `yaml:"ipc"`
		Owner         string   `yaml:"owner"`
		OriginalOwner string   `yaml:"original_owner"`
		Capital       string   `yaml:"capital"`
		VictoryCity   string   `yaml:"victory_city"`
		Facilities    []string `yaml:"facilities"`
		Neutral       string   `yaml:"neutral"`
		Impassable    bool     `yaml:"impassable"`
		Convoy        bool     `yaml:"convoy"`
		Adjacent      []string `yaml:"adjacent"`
	} `yaml:"regions"`
	Straits []struct {
		ID         string   `yaml:"id"`
		Controller string   `yaml:"controller"`
		Between    []string `yaml:"between"`
	} `yaml:"straits"`
	Objectives []struct {
		ID      string `yaml:"id"`
		Faction string `yaml:"faction"`
		Theater string `yaml:"theater"`
		Bonus   int    `yaml:"bonus"`
		When    string `yaml:"when"`
	} `yaml:"objectives"`
	Setup []struct {
		Region string   `yaml:"region"`
		Owner  string   `yaml:"owner"`
		Units  []string `yaml:"units"`
	} `yaml:"setup"`
}

// LoadMap parses a map document and checks it for consistency: known
// identifiers, symmetric adjacency, and compilable objectives.
func LoadMap(data []byte) (*TheaterMap, error) {
	var f mapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	m := &TheaterMap{
		name:    f.Name,
		regions: make(map[RegionID]*RegionInfo, len(f.Regions)),
		land:    make(map[RegionID][]RegionID, len(f.Regions)),
		sea:     make(map[RegionID][]RegionID, len(f.Regions)),
		straits: make(map[RegionID][]Strait),
	}

	for _, r := range f.Regions {
		id := RegionID(r.ID)
		if _, dup := m.regions[id]; dup {
			return nil, fmt.Errorf("region %s defined twice", id)
		}
		info := &RegionInfo{
			ID:          id,
			Name:        r.Name,
			Kind:        RegionKind(r.Kind),
			Theater:     Theater(r.Theater),
			IPC:         r.IPC,
			Owner:       Faction(r.Owner),
			CapitalOf:   Faction(r.Capital),
			VictoryCity: r.VictoryCity,
			Impassable:  r.Impassable,
			Neutral:     Stance(r.Neutral),
			Convoy:      r.Convoy,
		}
		info.OriginalOwner = info.Owner
		if r.OriginalOwner != "" {
			info.OriginalOwner = Faction(r.OriginalOwner)
		}
		if info.Kind != LandRegion && info.Kind != SeaRegion {
			return nil, fmt.Errorf("region %s: unknown kind %q", id, r.Kind)
		}
		if info.Theater != Europe && info.Theater != Pacific {
			return nil, fmt.Errorf("region %s: unknown theater %q", id, r.Theater)
		}
		for _, fac := range []Faction{info.Owner, info.OriginalOwner, info.CapitalOf} {
			if fac != NoFaction && !fac.Valid() {
				return nil, fmt.Errorf("region %s: unknown faction %q", id, fac)
			}
		}
		switch info.Neutral {
		case NotNeutral, ProAllies, ProAxis:
		case TrueNeutral:
			if info.Owner != NoFaction {
				return nil, fmt.Errorf("region %s: true neutral owned by %s", id, info.Owner)
			}
		default:
			return nil, fmt.Errorf("region %s: unknown neutral stance %q", id, r.Neutral)
		}
		for _, ft := range r.Facilities {
			t := FacilityType(ft)
			if !t.Valid() {
				return nil, fmt.Errorf("region %s: unknown facility %q", id, ft)
			}
			info.Facilities = append(info.Facilities, t)
		}
		m.regions[id] = info
		m.order = append(m.order, id)
	}

	for _, r := range f.Regions {
		id := RegionID(r.ID)
		for _, a := range r.Adjacent {
			n, ok := m.regions[RegionID(a)]
			if !ok {
				return nil, fmt.Errorf("region %s: unknown neighbor %q", id, a)
			}
			if n.IsLand() {
				m.land[id] = append(m.land[id], n.ID)
			} else {
				m.sea[id] = append(m.sea[id], n.ID)
			}
		}
	}
	for _, id := range m.order {
		for _, n := range neighbors(m, id) {
			if !isAdjacent(m, n, id) {
				return nil, fmt.Errorf("adjacency %s -> %s has no reverse", id, n)
			}
		}
	}

	for _, s := range f.Straits {
		if len(s.Between) != 2 {
			return nil, fmt.Errorf("strait %s: want two zones, got %d", s.ID, len(s.Between))
		}
		st := Strait{ID: s.ID, Controller: RegionID(s.Controller), A: RegionID(s.Between[0]), B: RegionID(s.Between[1])}
		for _, z := range []RegionID{st.A, st.B} {
			info, ok := m.regions[z]
			if !ok || !info.IsSea() {
				return nil, fmt.Errorf("strait %s: %s is not a sea zone", s.ID, z)
			}
		}
		if info, ok := m.regions[st.Controller]; !ok || !info.IsLand() {
			return nil, fmt.Errorf("strait %s: controller %s is not a territory", s.ID, st.Controller)
		}
		m.straits[st.A] = append(m.straits[st.A], st)
		m.straits[st.B] = append(m.straits[st.B], st)
	}

	sc := &m.scenario
	sc.AxisEuropeCities = f.Victory.Axis.Europe
	sc.AxisPacificCities = f.Victory.Axis.Pacific
	for _, c := range f.Victory.AlliesCapitals {
		fac := Faction(c)
		if !fac.Valid() {
			return nil, fmt.Errorf("victory: unknown faction %q", c)
		}
		sc.AlliedCapitals = append(sc.AlliedCapitals, fac)
	}

	for _, o := range f.Objectives {
		obj := &Objective{ID: o.ID, Faction: Faction(o.Faction), Theater: Theater(o.Theater), Bonus: o.Bonus, When: o.When}
		if !obj.Faction.Valid() {
			return nil, fmt.Errorf("objective %s: unknown faction %q", o.ID, o.Faction)
		}
		if err := obj.compile(); err != nil {
			return nil, fmt.Errorf("objective %s: %w", o.ID, err)
		}
		sc.Objectives = append(sc.Objectives, obj)
	}

	for _, s := range f.Setup {
		id := RegionID(s.Region)
		if _, ok := m.regions[id]; !ok {
			return nil, fmt.Errorf("setup: unknown region %q", s.Region)
		}
		owner := Faction(s.Owner)
		if !owner.Valid() {
			return nil, fmt.Errorf("setup %s: unknown faction %q", id, s.Owner)
		}
		for _, spec := range s.Units {
			count, t, err := parseUnitCount(spec)
			if err != nil {
				return nil, fmt.Errorf("setup %s: %w", id, err)
			}
			sc.Setup = append(sc.Setup, Placement{Region: id, Owner: owner, Type: t, Count: count})
		}
	}
	return m, nil
}

// parseUnitCount reads entries of the form "3 infantry".
func parseUnitCount(s string) (int, UnitType, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("bad unit entry %q", s)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, "", fmt.Errorf("bad unit count in %q", s)
	}
	t := UnitType(fields[1])
	if !t.Valid() {
		return 0, "", fmt.Errorf("unknown unit type %q", fields[1])
	}
	return n, t, nil
}

func (m *TheaterMap) Name() string { return m.name }

func (m *TheaterMap) Region(id RegionID) (RegionInfo, bool) {
	r, ok := m.regions[id]
	if !ok {
		return RegionInfo{}, false
	}
	return *r, true
}

func (m *TheaterMap) Regions() []RegionID { return m.order }

func (m *TheaterMap) AdjacentLand(id RegionID) []RegionID { return m.land[id] }

func (m *TheaterMap) AdjacentSea(id RegionID) []RegionID { return m.sea[id] }

func (m *TheaterMap) Straits(id RegionID) []Strait { return m.straits[id] }

func (m *TheaterMap) IsCoastal(id RegionID) bool {
	r, ok := m.regions[id]
	return ok && r.IsLand() && len(m.sea[id]) > 0
}

func (m *TheaterMap) Scenario() *Scenario { return &m.scenario }

// Path runs a breadth-first search that ignores units and ownership, so a
// legal move always has a path no longer than itself. Straits are treated as
// open and only impassable regions and true neutrals are closed.
func (m *TheaterMap) Path(from, to RegionID, d Domain, maxDistance int) ([]RegionID, bool) {
	if _, ok := m.regions[from]; !ok {
		return nil, false
	}
	if from == to {
		return []RegionID{from}, true
	}
	parent := map[RegionID]RegionID{from: ""}
	depth := map[RegionID]int{from: 0}
	queue := []RegionID{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth[cur] >= maxDistance {
			continue
		}
		for _, n := range m.steps(cur, d) {
			if _, seen := parent[n]; seen {
				continue
			}
			parent[n] = cur
			depth[n] = depth[cur] + 1
			if n == to {
				var path []RegionID
				for at := to; at != ""; at = parent[at] {
					path = append([]RegionID{at}, path...)
				}
				return path, true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}

func (m *TheaterMap) steps(id RegionID, d Domain) []RegionID {
	var out []RegionID
	switch d {
	case DomainLand:
		for _, n := range m.land[id] {
			if r := m.regions[n]; !r.Impassable && r.Neutral != TrueNeutral {
				out = append(out, n)
			}
		}
	case DomainSea:
		if !m.regions[id].IsSea() {
			return nil
		}
		out = append(out, m.sea[id]...)
		for _, s := range m.straits[id] {
			out = append(out, s.Other(id))
		}
	case DomainAir:
		for _, n := range neighbors(m, id) {
			if r := m.regions[n]; !r.Impassable && r.Neutral != TrueNeutral {
				out = append(out, n)
			}
		}
	}
	return out
}
