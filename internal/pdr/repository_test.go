package pdr

import (
	"testing"

	"github.com/openpldm/pldmd/internal/identifier"
)

func TestBuildRepositoryDerivesNameAndObjectPaths(t *testing.T) {
	root := EntityKey{EntityType: 1, EntityInstance: 0, ContainerID: 0}
	fan := EntityKey{EntityType: 2, EntityInstance: 1, ContainerID: 1}

	records := []Record{
		{Kind: KindTerminusLocator, TerminusLocator: TerminusLocatorRecord{ContainerID: 0}},
		{Kind: KindEntityAssociation, EntityAssociation: EntityAssociationRecord{ContainerID: 0, Container: root, Contained: []EntityKey{fan}}},
		{Kind: KindEntityAuxNames, EntityAuxNames: EntityAuxNamesRecord{Entity: root, Names: []AuxName{{LanguageTag: "en", Name: "chassis_bmc"}}}},
		{Kind: KindEntityAuxNames, EntityAuxNames: EntityAuxNamesRecord{Entity: fan, Names: []AuxName{{LanguageTag: "en", Name: "fan_0"}}}},
	}

	repo, err := BuildRepository(identifier.TID(3), "fallback_location", records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.DeviceName != "chassis_bmc" {
		t.Fatalf("device name = %q, want chassis_bmc", repo.DeviceName)
	}
	rootPath, ok := repo.ObjectPath(root)
	if !ok || rootPath != "/xyz/openbmc_project/inventory/system/3/chassis_bmc" {
		t.Fatalf("unexpected root path: %q ok=%v", rootPath, ok)
	}
	fanPath, ok := repo.ObjectPath(fan)
	if !ok || fanPath != rootPath+"/fan_0" {
		t.Fatalf("unexpected fan path: %q ok=%v", fanPath, ok)
	}
}

func TestBuildRepositoryFallsBackToLocationHintThenSynthetic(t *testing.T) {
	root := EntityKey{EntityType: 1, EntityInstance: 0, ContainerID: 0}
	records := []Record{
		{Kind: KindTerminusLocator, TerminusLocator: TerminusLocatorRecord{ContainerID: 0}},
		{Kind: KindEntityAssociation, EntityAssociation: EntityAssociationRecord{ContainerID: 0, Container: root}},
	}

	repo, err := BuildRepository(identifier.TID(7), "bmc at rack 1!", records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.DeviceName != "bmc_at_rack_1_" {
		t.Fatalf("device name = %q", repo.DeviceName)
	}

	repoNoHint, err := BuildRepository(identifier.TID(7), "", records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repoNoHint.DeviceName != "PLDM_Device_7" {
		t.Fatalf("device name = %q, want PLDM_Device_7", repoNoHint.DeviceName)
	}
}

func TestBuildRepositoryRejectsSecondTerminusLocator(t *testing.T) {
	records := []Record{
		{Kind: KindTerminusLocator, TerminusLocator: TerminusLocatorRecord{ContainerID: 0}},
		{Kind: KindTerminusLocator, TerminusLocator: TerminusLocatorRecord{ContainerID: 1}},
	}
	if _, err := BuildRepository(identifier.TID(1), "", records); err == nil {
		t.Fatalf("expected error for duplicate terminus locator")
	}
}
