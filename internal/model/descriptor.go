package model

// DescriptorKind discriminates the catalog schemas.
type DescriptorKind int

const (
	// KindAlexandria is the media-data.alexandria-media schema (schema A).
	KindAlexandria DescriptorKind = iota + 1
	// KindOip041 is the oip-041.artifact schema (schema B).
	KindOip041
)

// String returns the schema name.
func (k DescriptorKind) String() string {
	switch k {
	case KindAlexandria:
		return "alexandria-media"
	case KindOip041:
		return "oip-041"
	default:
		return "unknown"
	}
}

// IndependentAddresses is the schema A filename value meaning every file
// field is a content address of its own rather than a name under DHT Hash.
const IndependentAddresses = "none"

// Descriptor is a catalog entry. It is one of AlexandriaDescriptor or
// Oip041Descriptor; the set is closed.
type Descriptor interface {
	Kind() DescriptorKind
	descriptor()
}

// AlexandriaDescriptor is a media-data.alexandria-media.info.extra-info entry.
type AlexandriaDescriptor struct {
	Filename    string `json:"filename"`
	DHTHash     string `json:"DHT Hash"`
	PosterFrame string `json:"posterFrame"`
	CoverArt    string `json:"coverArt"`
	Poster      string `json:"poster"`
	Trailer     string `json:"trailer"`
	Track01     string `json:"track01"`
	Track02     string `json:"track02"`
}

// Kind implements Descriptor.
func (AlexandriaDescriptor) Kind() DescriptorKind { return KindAlexandria }

func (AlexandriaDescriptor) descriptor() {}

// RoleFields returns the file-role fields in ingestion order, excluding
// Filename and DHTHash.
func (d AlexandriaDescriptor) RoleFields() []string {
	return []string{d.PosterFrame, d.CoverArt, d.Poster, d.Trailer, d.Track01, d.Track02}
}

// Oip041File is one entry of artifact.storage.files.
type Oip041File struct {
	FName string `json:"fname"`
}

// Oip041Descriptor is an oip-041 artifact.
type Oip041Descriptor struct {
	Location string       `json:"location"`
	Files    []Oip041File `json:"files"`

	// Title and Timestamp are carried for diagnostics only.
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// Kind implements Descriptor.
func (Oip041Descriptor) Kind() DescriptorKind { return KindOip041 }

func (Oip041Descriptor) descriptor() {}
