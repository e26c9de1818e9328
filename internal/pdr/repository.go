package pdr

import (
	"fmt"

	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/pldmerr"
	"github.com/rs/zerolog/log"
)

// Repository is the device's fully parsed, read-only-after-construction
// descriptor repository (spec §3 PdrRecord, ownership: "the PDR manager
// uniquely owns its repository and derived maps").
type Repository struct {
	TID    identifier.TID
	Root   *EntityNode
	Records []Record

	DeviceContainerID uint16
	DeviceName        string

	objectPaths     map[EntityKey]string
	entityAuxNames  map[EntityKey][]string
	sensorAuxNames  map[uint16][]string
	numericSensors  map[uint16]NumericSensorRecord
	stateSensors    map[uint16]StateSensorRecord
	numericEffecters map[uint16]NumericEffecterRecord
	stateEffecters  map[uint16]StateEffecterRecord
	fruRecordSets   map[uint16]FruRecordSetRecord
}

// BuildRepository materializes a Repository from a device's fully
// retrieved and parsed record set (spec §4.3 "Parsing").
// locationHint is the transport-provided location string, used as the
// second-priority source for DeviceName.
func BuildRepository(tid identifier.TID, locationHint string, records []Record) (*Repository, error) {
	repo := &Repository{
		TID:              tid,
		Records:          records,
		objectPaths:      make(map[EntityKey]string),
		entityAuxNames:   make(map[EntityKey][]string),
		sensorAuxNames:   make(map[uint16][]string),
		numericSensors:   make(map[uint16]NumericSensorRecord),
		stateSensors:     make(map[uint16]StateSensorRecord),
		numericEffecters: make(map[uint16]NumericEffecterRecord),
		stateEffecters:   make(map[uint16]StateEffecterRecord),
		fruRecordSets:    make(map[uint16]FruRecordSetRecord),
	}

	var haveTerminusLocator bool
	var associations []EntityAssociationRecord
	for _, rec := range records {
		switch rec.Kind {
		case KindTerminusLocator:
			if haveTerminusLocator {
				return nil, fmt.Errorf("%w: second valid terminus locator", pldmerr.ErrInconsistentRepo)
			}
			haveTerminusLocator = true
			repo.DeviceContainerID = rec.TerminusLocator.ContainerID
		case KindEntityAssociation:
			associations = append(associations, rec.EntityAssociation)
		}
	}
	if !haveTerminusLocator {
		return nil, fmt.Errorf("%w: no terminus locator record", pldmerr.ErrInconsistentRepo)
	}

	root, err := BuildEntityTree(repo.DeviceContainerID, associations)
	if err != nil {
		return nil, err
	}
	repo.Root = root

	for _, rec := range records {
		if rec.Kind == KindEntityAuxNames {
			repo.indexEntityAuxNames(rec.EntityAuxNames)
		}
	}

	repo.DeviceName = repo.deriveDeviceName(locationHint)
	repo.assignObjectPaths(root, "/xyz/openbmc_project/inventory/system", repo.DeviceName)

	for _, rec := range records {
		repo.indexDerived(rec)
	}

	return repo, nil
}

func (r *Repository) indexEntityAuxNames(rec EntityAuxNamesRecord) {
	var names []string
	for _, n := range rec.Names {
		for _, expanded := range expandSharedNames(n.Name, rec.SharedNameCount) {
			names = append(names, expanded)
		}
	}
	if len(names) > 0 {
		r.entityAuxNames[rec.Entity] = names
	}
}

func (r *Repository) indexDerived(rec Record) {
	switch rec.Kind {
	case KindSensorAuxNames:
		for _, n := range rec.SensorAuxNames.Names {
			r.sensorAuxNames[rec.SensorAuxNames.SensorID] = append(r.sensorAuxNames[rec.SensorAuxNames.SensorID], n.Name)
		}
	case KindNumericSensor:
		if FindNode(r.Root, rec.NumericSensor.Entity) == nil {
			log.Warn().Uint16("sensorId", rec.NumericSensor.SensorID).Msg("pdr: dropping numeric sensor with unresolved entity")
			return
		}
		r.numericSensors[rec.NumericSensor.SensorID] = rec.NumericSensor
	case KindStateSensor:
		if FindNode(r.Root, rec.StateSensor.Entity) == nil {
			log.Warn().Uint16("sensorId", rec.StateSensor.SensorID).Msg("pdr: dropping state sensor with unresolved entity")
			return
		}
		r.stateSensors[rec.StateSensor.SensorID] = rec.StateSensor
	case KindNumericEffecter:
		if FindNode(r.Root, rec.NumericEffecter.Entity) == nil {
			log.Warn().Uint16("effecterId", rec.NumericEffecter.EffecterID).Msg("pdr: dropping numeric effecter with unresolved entity")
			return
		}
		r.numericEffecters[rec.NumericEffecter.EffecterID] = rec.NumericEffecter
	case KindStateEffecter:
		if FindNode(r.Root, rec.StateEffecter.Entity) == nil {
			log.Warn().Uint16("effecterId", rec.StateEffecter.EffecterID).Msg("pdr: dropping state effecter with unresolved entity")
			return
		}
		r.stateEffecters[rec.StateEffecter.EffecterID] = rec.StateEffecter
	case KindFRURecordSet:
		if FindNode(r.Root, rec.FRURecordSet.Entity) == nil {
			log.Warn().Uint16("fruRecordSetId", rec.FRURecordSet.FRURecordSetIdentifier).Msg("pdr: dropping fru record set with unresolved entity")
			return
		}
		r.fruRecordSets[rec.FRURecordSet.FRURecordSetIdentifier] = rec.FRURecordSet
	}
}

// deriveDeviceName chooses the device's name in priority order (spec
// §4.3 "Derived device name").
func (r *Repository) deriveDeviceName(locationHint string) string {
	if r.Root != nil {
		if names, ok := r.entityAuxNames[r.Root.Key]; ok && len(names) > 0 {
			return names[0]
		}
	}
	if sanitized, ok := SanitizeName(locationHint); ok {
		return sanitized
	}
	name, _ := SanitizeName(fmt.Sprintf("PLDM_Device_%d", r.TID))
	return name
}

// NumericSensor, StateSensor, NumericEffecter, StateEffecter, and
// FRURecordSet are the repository's public lookups by id (spec §4.3
// "cached by id").
func (r *Repository) NumericSensor(id uint16) (NumericSensorRecord, bool) {
	v, ok := r.numericSensors[id]
	return v, ok
}

func (r *Repository) StateSensor(id uint16) (StateSensorRecord, bool) {
	v, ok := r.stateSensors[id]
	return v, ok
}

func (r *Repository) NumericEffecter(id uint16) (NumericEffecterRecord, bool) {
	v, ok := r.numericEffecters[id]
	return v, ok
}

func (r *Repository) StateEffecter(id uint16) (StateEffecterRecord, bool) {
	v, ok := r.stateEffecters[id]
	return v, ok
}

func (r *Repository) FRURecordSet(id uint16) (FruRecordSetRecord, bool) {
	v, ok := r.fruRecordSets[id]
	return v, ok
}

// ObjectPath returns the derived object path for an entity (spec §4.3
// "Object-path derivation").
func (r *Repository) ObjectPath(key EntityKey) (string, bool) {
	p, ok := r.objectPaths[key]
	return p, ok
}
