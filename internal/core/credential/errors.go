package credential

import "errors"

var (
	ErrIdentificationNotFound = errors.New("identification: not found")
	ErrCertificateNotFound    = errors.New("certificate: not found")
	ErrEducationNotFound      = errors.New("education: not found")
	ErrDuplicateNumber        = errors.New("identification: number already registered")
)
