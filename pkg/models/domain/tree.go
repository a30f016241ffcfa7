package domain

// BandID addresses a band inside a BandTree.
type BandID int

// NoBand is the parent of the report root.
const NoBand BandID = -1

type DataState uint8

const (
	// DataPopulated holds a row returned by a query (possibly empty).
	DataPopulated DataState = iota
	// DataEmpty marks the placeholder emitted when a band selected no data.
	// Child bands of a DataEmpty band are never expanded.
	DataEmpty
)

func (s DataState) String() string {
	if s == DataEmpty {
		return "empty"
	}
	return "populated"
}

type BandData struct {
	ID          BandID
	Name        string
	Orientation Orientation
	Parent      BandID
	Data        Row
	State       DataState
	Children    []BandID
}

// BandTree is an arena owning every band produced by one extraction run.
// Parents are plain indices, so the whole tree is released as a unit.
type BandTree struct {
	bands []BandData
}

const RootBandName = "Root"

func NewBandTree(rootName string, params Params) *BandTree {
	t := &BandTree{}
	row := make(Row, len(params))
	for k, v := range params {
		row[k] = v
	}
	t.Add(rootName, OrientationHorizontal, NoBand, row)
	return t
}

func (t *BandTree) Root() BandID {
	return 0
}

// Add creates a detached band. A nil row yields a DataEmpty band whose Data is
// an empty, non-nil mapping. The new band is not appended to the parent's
// children; use AppendChildren for that.
func (t *BandTree) Add(name string, orientation Orientation, parent BandID, row Row) BandID {
	id := BandID(len(t.bands))
	state := DataPopulated
	if row == nil {
		row = Row{}
		state = DataEmpty
	}
	t.bands = append(t.bands, BandData{
		ID:          id,
		Name:        name,
		Orientation: orientation,
		Parent:      parent,
		Data:        row,
		State:       state,
	})
	return id
}

func (t *BandTree) AppendChildren(parent BandID, children ...BandID) {
	if len(children) == 0 {
		return
	}
	b := &t.bands[parent]
	b.Children = append(b.Children, children...)
}

// Band returns a copy of the band header. The Data and Children fields alias
// the tree's storage.
func (t *BandTree) Band(id BandID) BandData {
	return t.bands[id]
}

func (t *BandTree) Children(id BandID) []BandID {
	return t.bands[id].Children
}

func (t *BandTree) IsEmpty(id BandID) bool {
	if id == NoBand {
		return false
	}
	return t.bands[id].State == DataEmpty
}

func (t *BandTree) Len() int {
	return len(t.bands)
}

// Walk visits bands depth-first starting at id, preserving child order.
func (t *BandTree) Walk(id BandID, fn func(b BandData, depth int) error) error {
	return t.walk(id, 0, fn)
}

func (t *BandTree) walk(id BandID, depth int, fn func(b BandData, depth int) error) error {
	if err := fn(t.bands[id], depth); err != nil {
		return err
	}
	for _, c := range t.bands[id].Children {
		if err := t.walk(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
