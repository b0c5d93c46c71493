package usecase

import (
	"batchattest/internal/domain"
)

type (
	AnchorClient    = domain.AnchorClient
	AdmissionPolicy = domain.AdmissionPolicy
)
