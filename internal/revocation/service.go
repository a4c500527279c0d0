package revocation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"dcptck/internal/platform/metrics"
	"dcptck/internal/vc"
	"dcptck/pkg/platform/middleware/requesttime"
)

// ListLength is the number of entries in every status list.
const ListLength = 16 * 1024

const (
	TypeStatusList2021      = "StatusList2021"
	TypeBitstringStatusList = "BitstringStatusList"

	ContextStatusList2021 = "https://w3id.org/vc/status-list/2021/v1"

	PurposeRevocation = "revocation"
)

// Service is an issuer's revocation list.
type Service interface {
	// SetRevoked marks index revoked; an index outside the list panics.
	SetRevoked(index int)
	IsRevoked(index int) bool
	Len() int
	// CreateStatusListCredential renders the current list as an unsigned
	// status list credential.
	CreateStatusListCredential(ctx context.Context) (*vc.VerifiableCredential, error)
	CredentialID() string
	// Address is the URL the status list credential is served at.
	Address() string
	StatusEntryType() string
}

// New returns the service for a list type name, matched case-insensitively.
func New(listType, issuerDID, baseURL string, lsbFirst bool, m *metrics.Metrics) (Service, error) {
	switch strings.ToLower(listType) {
	case strings.ToLower(TypeStatusList2021):
		return NewStatusList2021Service(issuerDID, baseURL, lsbFirst, m), nil
	case strings.ToLower(TypeBitstringStatusList):
		return NewBitstringStatusListService(issuerDID, baseURL, lsbFirst, m), nil
	default:
		return nil, fmt.Errorf("unsupported revocation list type: %s", listType)
	}
}

// statusList holds what both list flavours share; the flavours differ only
// in how the credential is dressed and the list encoded.
type statusList struct {
	bits         *BitString
	credentialID string
	issuerDID    string
	address      string
	metrics      *metrics.Metrics

	context     []string
	credType    string
	subjectType string
	entryType   string
	encode      func([]byte) (string, error)
}

func newStatusList(issuerDID, baseURL string, lsbFirst bool, m *metrics.Metrics) statusList {
	id := uuid.NewString()
	return statusList{
		bits:         NewBitString(ListLength, lsbFirst),
		credentialID: id,
		issuerDID:    issuerDID,
		address:      strings.TrimSuffix(baseURL, "/") + "/status/" + id,
		metrics:      m,
	}
}

func (s *statusList) SetRevoked(index int) {
	if index < 0 || index >= ListLength {
		panic(fmt.Sprintf("Index out of range: %d", index))
	}
	s.bits.Set(index, true)
	if s.metrics != nil {
		s.metrics.IncrementRevocations()
	}
}

func (s *statusList) IsRevoked(index int) bool {
	return s.bits.Get(index)
}

func (s *statusList) Len() int {
	return s.bits.Len()
}

func (s *statusList) CredentialID() string {
	return s.credentialID
}

func (s *statusList) Address() string {
	return s.address
}

func (s *statusList) StatusEntryType() string {
	return s.entryType
}

func (s *statusList) CreateStatusListCredential(ctx context.Context) (*vc.VerifiableCredential, error) {
	encoded, err := s.encode(s.bits.Bytes())
	if err != nil {
		return nil, err
	}
	return vc.NewCredentialBuilder().
		ID(s.credentialID).
		Context(s.context...).
		Type(vc.TypeVerifiableCredential, s.credType).
		Issuer(s.issuerDID).
		IssuanceDate(requesttime.Now(ctx)).
		Subject(map[string]any{
			"id":            s.credentialID,
			"type":          s.subjectType,
			"statusPurpose": PurposeRevocation,
			"encodedList":   encoded,
		}).
		Build(), nil
}

// StatusList2021Service renders the list as a StatusList2021Credential with a
// multibase encoded list.
type StatusList2021Service struct {
	statusList
}

func NewStatusList2021Service(issuerDID, baseURL string, lsbFirst bool, m *metrics.Metrics) *StatusList2021Service {
	s := &StatusList2021Service{statusList: newStatusList(issuerDID, baseURL, lsbFirst, m)}
	s.context = []string{vc.ContextV1, ContextStatusList2021}
	s.credType = "StatusList2021Credential"
	s.subjectType = TypeStatusList2021
	s.entryType = "StatusList2021Entry"
	s.encode = encodeMultibase
	return s
}

// BitstringStatusListService renders the list as a v2
// BitstringStatusListCredential with a base64 encoded list.
type BitstringStatusListService struct {
	statusList
}

func NewBitstringStatusListService(issuerDID, baseURL string, lsbFirst bool, m *metrics.Metrics) *BitstringStatusListService {
	s := &BitstringStatusListService{statusList: newStatusList(issuerDID, baseURL, lsbFirst, m)}
	s.context = []string{vc.ContextV2}
	s.credType = "BitstringStatusListCredential"
	s.subjectType = TypeBitstringStatusList
	s.entryType = "BitstringStatusListEntry"
	s.encode = encodeBase64
	return s
}

// NewStatusEntry builds the credentialStatus entry pointing at index of svc.
func NewStatusEntry(svc Service, index int) *vc.MetadataReference {
	if index < 0 || index >= svc.Len() {
		panic(fmt.Sprintf("Index out of range: %d", index))
	}
	return vc.NewMetadataReference(
		svc.Address()+"#"+strconv.Itoa(index),
		svc.StatusEntryType(),
		map[string]any{
			"statusPurpose":        PurposeRevocation,
			"statusListIndex":      strconv.Itoa(index),
			"statusListCredential": svc.Address(),
		},
	)
}
