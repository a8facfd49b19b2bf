// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// ExtractPDFText 逐页提取 PDF 文本，每页前加 "--- Page N ---" 标记，空白页跳过
func ExtractPDFText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("get page count: %w", err)
	}

	var buf strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("get page %d: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("create extractor for page %d: %w", i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&buf, "\n--- Page %d ---\n%s\n", i, text)
	}
	return buf.String(), nil
}
