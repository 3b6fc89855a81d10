package hub

// Reference-data identifiers for access types and restriction grounds.
const (
	AccessTypeOpen       = "http://purl.org/att/es/reference_data/access_type/access_type_open_access"
	AccessTypeRestricted = "http://purl.org/att/es/reference_data/access_type/access_type_restricted_access"

	RestrictionGroundsRegistration = "http://purl.org/att/es/reference_data/restriction_grounds/restriction_grounds_registration"
	RestrictionGroundsResearch     = "http://purl.org/att/es/reference_data/restriction_grounds/restriction_grounds_research"

	LicenseOther = "other"
)

// SetLicense replaces the license list with a single license.
func (ar *AccessRights) SetLicense(identifier string) {
	ar.License = []Concept{{Identifier: identifier}}
}

// SetAccessType sets the access type.
func (ar *AccessRights) SetAccessType(identifier string) {
	ar.AccessType = &Concept{Identifier: identifier}
}

// HasLicense reports whether at least one license is set.
func (ar *AccessRights) HasLicense() bool {
	return ar != nil && len(ar.License) > 0
}

// IsOpen reports whether the access type is open access.
func (ar *AccessRights) IsOpen() bool {
	return ar != nil && ar.AccessType != nil && ar.AccessType.Identifier == AccessTypeOpen
}

// AddLicense appends a license unless it is already listed.
func (ar *AccessRights) AddLicense(identifier string) {
	for _, l := range ar.License {
		if l.Identifier == identifier {
			return
		}
	}
	ar.License = append(ar.License, Concept{Identifier: identifier})
}
