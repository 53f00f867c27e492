package backbone

import (
	"encoding/xml"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// BackboneFileName is the name of the rendered backbone document at the
// root of an exported package.
const BackboneFileName = "submissionunit.xml"

// HL7 RPS constants mandated by the ICH implementation guide.
const (
	xmlns         = "urn:hl7-org:v3"
	oidCodeSystem = "2.16.840.1.113883.3.989.2.2.1"
	hashAlgorithm = "SHA-256"
)

type xmlSubmissionUnit struct {
	XMLName    xml.Name        `xml:"submissionUnit"`
	Xmlns      string          `xml:"xmlns,attr"`
	ID         string          `xml:"id,attr"`
	Code       string          `xml:"code,attr"`
	CodeSystem string          `xml:"codeSystem,attr"`
	StatusCode string          `xml:"statusCode,attr"`
	Submission xmlSubmission   `xml:"submission"`
	App        xmlApplication  `xml:"application"`
	Applicant  xmlApplicant    `xml:"applicant"`
	Contexts   []xmlContext    `xml:"contextOfUse"`
	Documents  []xmlDocument   `xml:"document"`
}

type xmlSubmission struct {
	ID             string      `xml:"id,attr"`
	Code           string      `xml:"code,attr"`
	CodeSystem     string      `xml:"codeSystem,attr"`
	SequenceNumber xmlValueInt `xml:"sequenceNumber"`
}

type xmlValueInt struct {
	Value int `xml:"value,attr"`
}

type xmlApplication struct {
	ID         string     `xml:"id,attr"`
	Code       string     `xml:"code,attr"`
	CodeSystem string     `xml:"codeSystem,attr"`
	Number     xmlAppCode `xml:"code"`
}

type xmlAppCode struct {
	Code       string `xml:"code,attr"`
	CodeSystem string `xml:"codeSystem,attr"`
}

type xmlApplicant struct {
	Org xmlSponsoringOrg `xml:"sponsoringOrganization"`
}

type xmlSponsoringOrg struct {
	Name string `xml:"name"`
}

type xmlContext struct {
	ID         string       `xml:"id,attr"`
	Code       string       `xml:"code,attr"`
	CodeSystem string       `xml:"codeSystem,attr"`
	StatusCode string       `xml:"statusCode,attr"`
	Priority   xmlValueInt  `xml:"priorityNumber"`
	DocRef     xmlDocRef    `xml:"documentReference"`
}

type xmlDocRef struct {
	ID xmlRootRef `xml:"id"`
}

type xmlRootRef struct {
	Root string `xml:"root,attr"`
}

type xmlDocument struct {
	ID      string      `xml:"id,attr"`
	Title   xmlValueStr `xml:"title"`
	Text    xmlDocText  `xml:"text"`
	Related *xmlRootRef `xml:"relatedDocument,omitempty"`
}

type xmlValueStr struct {
	Value string `xml:"value,attr"`
}

type xmlDocText struct {
	IntegrityCheck     string      `xml:"integrityCheck,attr"`
	IntegrityAlgorithm string      `xml:"integrityCheckAlgorithm,attr"`
	MediaType          string      `xml:"mediaType,attr"`
	Operation          string      `xml:"operation,attr"`
	Reference          xmlValueStr `xml:"reference"`
}

// Render serializes the structural tree into the backbone document.
// Output is byte-identical for identical submission state: every id not
// already persisted is derived with a name-based UUID, leaf order follows
// the tree, and no timestamps are embedded.
func Render(t *Tree) ([]byte, error) {
	sub := t.Submission

	unit := xmlSubmissionUnit{
		Xmlns:      xmlns,
		ID:         deriveID("submission-unit", sub.ID),
		Code:       "submission-unit",
		CodeSystem: oidCodeSystem,
		StatusCode: "active",
		Submission: xmlSubmission{
			ID:             sub.ID,
			Code:           fmt.Sprintf("seq-%04d", sub.SequenceNumber),
			CodeSystem:     oidCodeSystem,
			SequenceNumber: xmlValueInt{Value: sub.SequenceNumber},
		},
		App: xmlApplication{
			ID:         deriveID("application", sub.ApplicationNumber),
			Code:       string(sub.ApplicationType),
			CodeSystem: oidCodeSystem,
			Number: xmlAppCode{
				Code:       sub.ApplicationNumber,
				CodeSystem: oidCodeSystem,
			},
		},
		Applicant: xmlApplicant{
			Org: xmlSponsoringOrg{Name: sub.ApplicantName},
		},
	}

	for i, leaf := range t.Leaves() {
		unit.Contexts = append(unit.Contexts, xmlContext{
			ID:         deriveID("context-of-use", leaf.LeafDocumentID),
			Code:       contextCode(leaf),
			CodeSystem: oidCodeSystem,
			StatusCode: "active",
			Priority:   xmlValueInt{Value: i + 1},
			DocRef:     xmlDocRef{ID: xmlRootRef{Root: leaf.LeafDocumentID}},
		})

		doc := xmlDocument{
			ID:    leaf.LeafDocumentID,
			Title: xmlValueStr{Value: leaf.Title},
			Text: xmlDocText{
				IntegrityCheck:     leaf.ContentHash,
				IntegrityAlgorithm: hashAlgorithm,
				MediaType:          mediaType(leaf.RelPath),
				Operation:          string(leaf.Operation.Kind),
				Reference:          xmlValueStr{Value: leaf.RelPath},
			},
		}
		if leaf.Operation.RefID != "" {
			doc.Related = &xmlRootRef{Root: leaf.Operation.RefID}
		}
		unit.Documents = append(unit.Documents, doc)
	}

	body, err := xml.MarshalIndent(unit, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal backbone: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// deriveID yields a stable name-based UUID for backbone elements that have
// no persisted identity of their own.
func deriveID(kind, seed string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(kind+":"+seed)).String()
}

func contextCode(leaf *Node) string {
	return string(leaf.ContextOfUse)
}

func mediaType(relPath string) string {
	switch filepath.Ext(relPath) {
	case ".pdf":
		return "application/pdf"
	case ".xml":
		return "text/xml"
	case ".xpt":
		return "application/x-sas-xport"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
