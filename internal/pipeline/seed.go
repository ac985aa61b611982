package pipeline

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"originality-go/internal/repository"
	"originality-go/pkg/log"
)

// RegisterSeedFiles 扫描目录下的文件并以 file:// 地址登记到文档登记表（幂等），
// 文件名即文档标识。目录不存在时跳过，返回新登记的数量。
func RegisterSeedFiles(ctx context.Context, dir string, registry repository.SourceRepository) (int, error) {
	if dir == "" {
		return 0, nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("[Seed] 目录 '%s' 不存在或不可用，跳过种子文件登记", dir)
		return 0, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return 0, err
	}

	added := 0
	walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warnf("[Seed] 访问 %s 失败: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		location := (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
		ok, err := registry.Register(ctx, d.Name(), location)
		if err != nil {
			return err
		}
		if ok {
			added++
			log.Infof("[Seed] 登记种子文件: %s", d.Name())
		}
		return nil
	})
	return added, walkErr
}
