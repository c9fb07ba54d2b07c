package converter

// OperationID selects one conversion. The set is closed; see Operations.
type OperationID string

const (
	PDFToImages OperationID = "pdf-to-images"
	ImagesToPDF OperationID = "images-to-pdf"
	MergePDF    OperationID = "merge-pdf"
	SplitPDF    OperationID = "split-pdf"
	CompressPDF OperationID = "compress-pdf"
	PDFToPDFA   OperationID = "pdf-to-pdfa"
	WordToPDF   OperationID = "word-to-pdf"
	ExcelToPDF  OperationID = "excel-to-pdf"
	TxtToPDF    OperationID = "txt-to-pdf"
	PDFToWord   OperationID = "pdf-to-word"
)

// Arity is whether a capability consumes the first upload or the whole set
type Arity int

const (
	Single Arity = iota
	Multi
)

func (a Arity) String() string {
	if a == Multi {
		return "multi"
	}
	return "single"
}

// MarshalText renders the arity as "single" or "multi" in JSON
func (a Arity) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

var operations = []OperationID{
	PDFToImages, ImagesToPDF, MergePDF, SplitPDF, CompressPDF,
	PDFToPDFA, WordToPDF, ExcelToPDF, TxtToPDF, PDFToWord,
}

// Operations lists every supported operation in display order
func Operations() []OperationID {
	return append([]OperationID(nil), operations...)
}

// ParseOperationID validates a tool name from a request
func ParseOperationID(tool string) (OperationID, error) {
	for _, id := range operations {
		if string(id) == tool {
			return id, nil
		}
	}
	return "", &UnsupportedToolError{Tool: tool}
}

// Arity reports how many uploads the operation consumes
func (id OperationID) Arity() Arity {
	switch id {
	case ImagesToPDF, MergePDF, PDFToPDFA, WordToPDF:
		return Multi
	default:
		return Single
	}
}

// Accepts lists the upload extensions the operation expects
func (id OperationID) Accepts() []string {
	switch id {
	case ImagesToPDF:
		return []string{"jpg", "jpeg", "png"}
	case WordToPDF:
		return []string{"docx"}
	case ExcelToPDF:
		return []string{"xlsx"}
	case TxtToPDF:
		return []string{"txt"}
	default:
		return []string{"pdf"}
	}
}
