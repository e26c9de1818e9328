package pdr

import (
	"encoding/binary"
	"fmt"
)

// byteReader is a small cursor over a record's payload. The manager
// endian-normalizes every multi-byte field through it (spec §4.3).
type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) u8() (uint8, error) {
	if r.pos+1 > len(r.b) {
		return 0, errShortRecord
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) u16() (uint16, error) {
	if r.pos+2 > len(r.b) {
		return 0, errShortRecord
	}
	v := binary.LittleEndian.Uint16(r.b[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.b) {
		return nil, errShortRecord
	}
	v := r.b[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func (r *byteReader) entityKey() (EntityKey, error) {
	t, err := r.u16()
	if err != nil {
		return EntityKey{}, err
	}
	inst, err := r.u16()
	if err != nil {
		return EntityKey{}, err
	}
	cid, err := r.u16()
	if err != nil {
		return EntityKey{}, err
	}
	return EntityKey{EntityType: t, EntityInstance: inst, ContainerID: cid}, nil
}

var errShortRecord = fmt.Errorf("pdr: record payload too short")

// parseAuxNameList reads a [language tag][name] list shared by entity and
// sensor/effecter auxiliary-name records (spec §4.3): only entries tagged
// "en" are retained, and each retained name is sanitized.
func parseAuxNameList(r *byteReader, count uint8) ([]AuxName, error) {
	out := make([]AuxName, 0, count)
	for i := uint8(0); i < count; i++ {
		tagLen, err := r.u8()
		if err != nil {
			return nil, err
		}
		tagBytes, err := r.bytes(int(tagLen))
		if err != nil {
			return nil, err
		}
		nameUnits, err := r.u16()
		if err != nil {
			return nil, err
		}
		nameBytes, err := r.bytes(int(nameUnits) * 2)
		if err != nil {
			return nil, err
		}
		tag := string(tagBytes)
		if tag != "en" {
			continue
		}
		decoded := decodeUTF16BEName(nameBytes)
		sanitized, ok := SanitizeName(decoded)
		if !ok {
			continue
		}
		out = append(out, AuxName{LanguageTag: tag, Name: sanitized})
	}
	return out, nil
}

func parseTerminusLocator(data []byte) (TerminusLocatorRecord, error) {
	r := &byteReader{b: data}
	handle, err := r.u16()
	if err != nil {
		return TerminusLocatorRecord{}, err
	}
	containerID, err := r.u16()
	if err != nil {
		return TerminusLocatorRecord{}, err
	}
	locType, err := r.u8()
	if err != nil {
		return TerminusLocatorRecord{}, err
	}
	auxLen, err := r.u8()
	if err != nil {
		return TerminusLocatorRecord{}, err
	}
	aux, err := r.bytes(int(auxLen))
	if err != nil {
		return TerminusLocatorRecord{}, err
	}
	return TerminusLocatorRecord{
		TerminusHandle:      handle,
		ContainerID:         containerID,
		TerminusLocatorType: locType,
		AuxInfo:             append([]byte(nil), aux...),
	}, nil
}

func parseEntityAuxNames(data []byte) (EntityAuxNamesRecord, error) {
	r := &byteReader{b: data}
	entity, err := r.entityKey()
	if err != nil {
		return EntityAuxNamesRecord{}, err
	}
	shared, err := r.u8()
	if err != nil {
		return EntityAuxNamesRecord{}, err
	}
	nameCount, err := r.u8()
	if err != nil {
		return EntityAuxNamesRecord{}, err
	}
	names, err := parseAuxNameList(r, nameCount)
	if err != nil {
		return EntityAuxNamesRecord{}, err
	}
	return EntityAuxNamesRecord{Entity: entity, SharedNameCount: shared, Names: names}, nil
}

func parseEntityAssociation(data []byte) (EntityAssociationRecord, error) {
	r := &byteReader{b: data}
	containerID, err := r.u16()
	if err != nil {
		return EntityAssociationRecord{}, err
	}
	assocType, err := r.u8()
	if err != nil {
		return EntityAssociationRecord{}, err
	}
	container, err := r.entityKey()
	if err != nil {
		return EntityAssociationRecord{}, err
	}
	containedCount, err := r.u8()
	if err != nil {
		return EntityAssociationRecord{}, err
	}
	contained := make([]EntityKey, 0, containedCount)
	for i := uint8(0); i < containedCount; i++ {
		ek, err := r.entityKey()
		if err != nil {
			return EntityAssociationRecord{}, err
		}
		contained = append(contained, ek)
	}
	return EntityAssociationRecord{
		ContainerID:     containerID,
		AssociationType: assocType,
		Container:       container,
		Contained:       contained,
	}, nil
}

func parseSensorAuxNames(data []byte) (SensorAuxNamesRecord, error) {
	r := &byteReader{b: data}
	id, err := r.u16()
	if err != nil {
		return SensorAuxNamesRecord{}, err
	}
	nameCount, err := r.u8()
	if err != nil {
		return SensorAuxNamesRecord{}, err
	}
	names, err := parseAuxNameList(r, nameCount)
	if err != nil {
		return SensorAuxNamesRecord{}, err
	}
	return SensorAuxNamesRecord{SensorID: id, Names: names}, nil
}

func parseNumericSensor(data []byte) (NumericSensorRecord, error) {
	r := &byteReader{b: data}
	id, err := r.u16()
	if err != nil {
		return NumericSensorRecord{}, err
	}
	entity, err := r.entityKey()
	if err != nil {
		return NumericSensorRecord{}, err
	}
	baseUnit, err := r.u8()
	if err != nil {
		return NumericSensorRecord{}, err
	}
	dataSize, err := r.u8()
	if err != nil {
		return NumericSensorRecord{}, err
	}
	return NumericSensorRecord{SensorID: id, Entity: entity, BaseUnit: baseUnit, SensorDataSize: dataSize}, nil
}

func parseStateSensor(data []byte) (StateSensorRecord, error) {
	r := &byteReader{b: data}
	id, err := r.u16()
	if err != nil {
		return StateSensorRecord{}, err
	}
	entity, err := r.entityKey()
	if err != nil {
		return StateSensorRecord{}, err
	}
	composite, err := r.u8()
	if err != nil {
		return StateSensorRecord{}, err
	}
	statesLen, err := r.u8()
	if err != nil {
		return StateSensorRecord{}, err
	}
	states, err := r.bytes(int(statesLen))
	if err != nil {
		return StateSensorRecord{}, err
	}
	return StateSensorRecord{
		SensorID:             id,
		Entity:               entity,
		CompositeSensorCount: composite,
		PossibleStates:       append([]byte(nil), states...),
	}, nil
}

func parseNumericEffecter(data []byte) (NumericEffecterRecord, error) {
	r := &byteReader{b: data}
	id, err := r.u16()
	if err != nil {
		return NumericEffecterRecord{}, err
	}
	entity, err := r.entityKey()
	if err != nil {
		return NumericEffecterRecord{}, err
	}
	baseUnit, err := r.u8()
	if err != nil {
		return NumericEffecterRecord{}, err
	}
	dataSize, err := r.u8()
	if err != nil {
		return NumericEffecterRecord{}, err
	}
	return NumericEffecterRecord{EffecterID: id, Entity: entity, BaseUnit: baseUnit, EffecterDataSize: dataSize}, nil
}

func parseStateEffecter(data []byte) (StateEffecterRecord, error) {
	r := &byteReader{b: data}
	id, err := r.u16()
	if err != nil {
		return StateEffecterRecord{}, err
	}
	entity, err := r.entityKey()
	if err != nil {
		return StateEffecterRecord{}, err
	}
	composite, err := r.u8()
	if err != nil {
		return StateEffecterRecord{}, err
	}
	statesLen, err := r.u8()
	if err != nil {
		return StateEffecterRecord{}, err
	}
	states, err := r.bytes(int(statesLen))
	if err != nil {
		return StateEffecterRecord{}, err
	}
	return StateEffecterRecord{
		EffecterID:             id,
		Entity:                 entity,
		CompositeEffecterCount: composite,
		PossibleStates:         append([]byte(nil), states...),
	}, nil
}

func parseFRURecordSet(data []byte) (FruRecordSetRecord, error) {
	r := &byteReader{b: data}
	id, err := r.u16()
	if err != nil {
		return FruRecordSetRecord{}, err
	}
	entity, err := r.entityKey()
	if err != nil {
		return FruRecordSetRecord{}, err
	}
	return FruRecordSetRecord{FRURecordSetIdentifier: id, Entity: entity}, nil
}

// ParseRecord dispatches on recordType and returns the corresponding
// tagged Record variant. Unrecognized types are preserved as Opaque so a
// repository dump still reflects them (spec §6).
func ParseRecord(handle uint32, recordType RecordType, data []byte) (Record, error) {
	rec := Record{Handle: handle, Type: recordType, Raw: append([]byte(nil), data...)}
	var err error
	switch recordType {
	case RecordTypeTerminusLocator:
		rec.Kind = KindTerminusLocator
		rec.TerminusLocator, err = parseTerminusLocator(data)
	case RecordTypeEntityAuxNames:
		rec.Kind = KindEntityAuxNames
		rec.EntityAuxNames, err = parseEntityAuxNames(data)
	case RecordTypeEntityAssociation:
		rec.Kind = KindEntityAssociation
		rec.EntityAssociation, err = parseEntityAssociation(data)
	case RecordTypeSensorAuxNames, RecordTypeEffecterAuxNames:
		rec.Kind = KindSensorAuxNames
		rec.SensorAuxNames, err = parseSensorAuxNames(data)
	case RecordTypeNumericSensor:
		rec.Kind = KindNumericSensor
		rec.NumericSensor, err = parseNumericSensor(data)
	case RecordTypeStateSensor:
		rec.Kind = KindStateSensor
		rec.StateSensor, err = parseStateSensor(data)
	case RecordTypeNumericEffecter:
		rec.Kind = KindNumericEffecter
		rec.NumericEffecter, err = parseNumericEffecter(data)
	case RecordTypeStateEffecter:
		rec.Kind = KindStateEffecter
		rec.StateEffecter, err = parseStateEffecter(data)
	case RecordTypeFRURecordSet:
		rec.Kind = KindFRURecordSet
		rec.FRURecordSet, err = parseFRURecordSet(data)
	default:
		rec.Kind = KindOpaque
		rec.Opaque = OpaqueRecord{Type: recordType, Data: rec.Raw}
	}
	if err != nil {
		return Record{}, fmt.Errorf("pdr: parse record type %d handle %d: %w", recordType, handle, err)
	}
	return rec, nil
}
