package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
)

// template frames the task, fixes the output schema and shows one example.
// The two %s slots receive the serialized dump and its code snippet.
const template = `You are an experienced SAP ABAP engineer and debugger.

Analyze the following ST22 short dump JSON. Return ONLY a single valid JSON object (no other text) with the following keys:
- root_cause (string): short root cause description
- technical_analysis (string): multi-line technical reasoning
- suggested_fix_code (string): ABAP code snippet or patch suggestion
- impact_analysis (string): what other processes/modules may be affected
- priority (string): one of "High","Medium","Low"
- confidence (number): 0.0-1.0 estimated confidence score

Example:
{
  "root_cause": "Null reference on lv_item when dereferencing.",
  "technical_analysis": "The variable lv_item is set to initial in branch X ...",
  "suggested_fix_code": "IF lv_item IS NOT INITIAL. ... ENDIF.",
  "impact_analysis": "This can affect Z_ORDER_CREATE and batch jobs XYZ.",
  "priority": "High",
  "confidence": 0.85
}

Now analyze the dump JSON below and produce only the JSON described above.

Dump JSON:
%s

Code snippet (if present):
%s
`

// Build renders the analysis prompt for a dump. Output is deterministic for a
// given payload: map keys serialize in sorted order.
func Build(p dump.Payload) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("failed to serialize dump: %w", err)
	}
	return fmt.Sprintf(template, bytes.TrimRight(buf.Bytes(), "\n"), p.Code()), nil
}
