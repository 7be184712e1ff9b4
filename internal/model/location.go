package model

import "fmt"

type LocationKind int

const (
	// LocationFlat is the top-level overlays collection keyed by asset_id.
	LocationFlat LocationKind = iota
	// LocationSubcollection is the collection nested under one asset.
	LocationSubcollection
)

// Location says which of the two overlay collections holds a document.
// Subcollection locations carry the owning asset.
type Location struct {
	Kind    LocationKind
	AssetID string
}

func Flat() Location {
	return Location{Kind: LocationFlat}
}

func Subcollection(assetID string) Location {
	return Location{Kind: LocationSubcollection, AssetID: assetID}
}

func (l Location) IsFlat() bool {
	return l.Kind == LocationFlat
}

func (l Location) String() string {
	if l.Kind == LocationSubcollection {
		return fmt.Sprintf("assets/%s/overlays", l.AssetID)
	}
	return "overlays"
}
