// Package pdr retrieves and parses a device's platform-descriptor-record
// repository, builds its entity-association tree, and derives the sensor,
// effecter, and FRU-record-set descriptors exposed to the rest of the
// agent (spec §4.3). Tagged variants replace the original's
// reinterpret-cast discipline (spec §9): Record is a closed enum, and
// downstream consumers exhaustively switch on Kind.
package pdr

// RecordType identifies the binary layout of a PDR's type-specific data,
// matching the PLDM platform-monitoring-and-control PDR type codes.
type RecordType uint8

const (
	RecordTypeTerminusLocator     RecordType = 1
	RecordTypeNumericSensor       RecordType = 2
	RecordTypeStateSensor         RecordType = 4
	RecordTypeSensorAuxNames      RecordType = 6
	RecordTypeNumericEffecter     RecordType = 9
	RecordTypeStateEffecter       RecordType = 11
	RecordTypeEffecterAuxNames    RecordType = 13
	RecordTypeEntityAssociation   RecordType = 15
	RecordTypeEntityAuxNames      RecordType = 16
	RecordTypeFRURecordSet        RecordType = 20
)

// EntityKey identifies a component in the device's logical hierarchy
// (spec glossary: Entity).
type EntityKey struct {
	EntityType     uint16
	EntityInstance uint16
	ContainerID    uint16
}

// TerminusLocatorRecord binds the locally assigned TID to a device
// container (spec §4.3 "Terminus-locator binding").
type TerminusLocatorRecord struct {
	TerminusHandle  uint16
	ContainerID     uint16
	TerminusLocatorType uint8
	AuxInfo         []byte
}

// EntityAuxNamesRecord carries one or more aux names for an entity, keyed
// by language tag (spec §4.3 "Entity auxiliary names").
type EntityAuxNamesRecord struct {
	Entity       EntityKey
	SharedNameCount uint8
	Names        []AuxName
}

// AuxName is one language-tagged, already-sanitized auxiliary name.
type AuxName struct {
	LanguageTag string
	Name        string
}

// EntityAssociationRecord is a container entity and the entities it
// contains (spec §4.3 "Entity-association records").
type EntityAssociationRecord struct {
	ContainerID      uint16
	AssociationType  uint8
	Container        EntityKey
	Contained        []EntityKey
}

// SensorAuxNamesRecord names a numeric or state sensor (spec §4.3
// "Sensor/effecter auxiliary names").
type SensorAuxNamesRecord struct {
	SensorID uint16
	Names    []AuxName
}

// NumericSensorRecord is a cached numeric-sensor descriptor resolved
// against the entity-association tree (spec §4.3).
type NumericSensorRecord struct {
	SensorID       uint16
	Entity         EntityKey
	BaseUnit       uint8
	SensorDataSize uint8
}

// StateSensorRecord is a cached state-sensor descriptor (spec §4.3).
type StateSensorRecord struct {
	SensorID        uint16
	Entity          EntityKey
	CompositeSensorCount uint8
	PossibleStates  []uint8
}

// NumericEffecterRecord is a cached numeric-effecter descriptor (spec
// §4.3).
type NumericEffecterRecord struct {
	EffecterID     uint16
	Entity         EntityKey
	BaseUnit       uint8
	EffecterDataSize uint8
}

// StateEffecterRecord is a cached state-effecter descriptor (spec §4.3).
type StateEffecterRecord struct {
	EffecterID      uint16
	Entity          EntityKey
	CompositeEffecterCount uint8
	PossibleStates  []uint8
}

// FruRecordSetRecord ties a FRU record-set identifier to an entity (spec
// §4.3 "FRU record-set").
type FruRecordSetRecord struct {
	FRURecordSetIdentifier uint16
	Entity                 EntityKey
}

// OpaqueRecord preserves an unrecognized or not-yet-materialized record's
// raw bytes so a repository dump still reflects it (spec §6 "Persisted
// state").
type OpaqueRecord struct {
	Type RecordType
	Data []byte
}

// Kind discriminates Record's active variant.
type Kind int

const (
	KindTerminusLocator Kind = iota
	KindEntityAuxNames
	KindEntityAssociation
	KindSensorAuxNames
	KindNumericSensor
	KindStateSensor
	KindNumericEffecter
	KindStateEffecter
	KindFRURecordSet
	KindOpaque
)

// Record is one parsed PDR: a record handle, the raw type code for
// dumping, and exactly one populated variant selected by Kind.
type Record struct {
	Handle uint32
	Type   RecordType
	Raw    []byte
	Kind   Kind

	TerminusLocator   TerminusLocatorRecord
	EntityAuxNames    EntityAuxNamesRecord
	EntityAssociation EntityAssociationRecord
	SensorAuxNames    SensorAuxNamesRecord
	NumericSensor     NumericSensorRecord
	StateSensor       StateSensorRecord
	NumericEffecter   NumericEffecterRecord
	StateEffecter     StateEffecterRecord
	FRURecordSet      FruRecordSetRecord
	Opaque            OpaqueRecord
}
