package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultCategories covers the corpus areas shipped with the service.
// A YAML file pointed to by CATEGORIES_PATH replaces the table wholesale.
var defaultCategories = map[string][]string{
	"労働": {
		"労働", "残業", "労働時間", "賃金", "休日", "休暇", "解雇",
		"có thai", "nghỉ phép", "làm thêm giờ", "tiền lương", "sa thải",
	},
	"社会保険": {
		"社会保険", "健康保険", "厚生年金", "雇用保険",
		"bảo hiểm", "lương hưu",
	},
	"国税": {
		"税", "所得税", "源泉徴収", "確定申告",
		"thuế", "khai thuế",
	},
	"災害補償": {
		"労災", "災害補償", "業務上", "療養",
		"tai nạn lao động", "bồi thường",
	},
}

type categoriesFile struct {
	Categories map[string][]string `yaml:"categories"`
}

// LoadCategories reads the category → keyword table. An empty path returns
// the built-in table.
func LoadCategories(path string) (map[string][]string, error) {
	if path == "" {
		return defaultCategories, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var parsed categoriesFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse categories file: %w", err)
	}
	if len(parsed.Categories) == 0 {
		return nil, fmt.Errorf("categories file %s defines no categories", path)
	}
	return parsed.Categories, nil
}
