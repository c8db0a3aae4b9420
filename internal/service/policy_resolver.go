package service

import (
	"github.com/yourusername/policy-api/internal/domain/entity"
	"github.com/yourusername/policy-api/internal/handler/dto"
)

// DocumentWithVersions связывает документ с загруженными версиями
type DocumentWithVersions struct {
	Document entity.PolicyDocument
	Versions []entity.PolicyVersion
}

// SelectCurrentVersion выбирает версию с максимальной датой вступления в силу.
// При равных датах побеждает более поздняя по created_at, затем первая в срезе.
// Порядок входного среза значения не имеет.
func SelectCurrentVersion(versions []entity.PolicyVersion) (entity.PolicyVersion, bool) {
	if len(versions) == 0 {
		return entity.PolicyVersion{}, false
	}

	best := versions[0]
	for _, v := range versions[1:] {
		vt, bt := v.EffectiveTime(), best.EffectiveTime()
		if vt.After(bt) || (vt.Equal(bt) && v.CreatedAt.After(best.CreatedAt)) {
			best = v
		}
	}
	return best, true
}

// MergeEffectivePolicies объединяет документы платформы и тенанта по ключу политики.
// Документы тенанта заменяют документы платформы с тем же ключом; ключ сохраняет позицию
// первой вставки. Документы без версий в результат не попадают.
func MergeEffectivePolicies(platform, tenant []DocumentWithVersions) []dto.EffectivePolicy {
	order := make([]entity.PolicyKey, 0, len(platform)+len(tenant))
	byKey := make(map[entity.PolicyKey]DocumentWithVersions, len(platform)+len(tenant))

	put := func(d DocumentWithVersions) {
		if _, exists := byKey[d.Document.PolicyKey]; !exists {
			order = append(order, d.Document.PolicyKey)
		}
		byKey[d.Document.PolicyKey] = d
	}
	for _, d := range platform {
		put(d)
	}
	for _, d := range tenant {
		put(d)
	}

	result := make([]dto.EffectivePolicy, 0, len(order))
	for _, key := range order {
		d := byKey[key]
		current, ok := SelectCurrentVersion(d.Versions)
		if !ok {
			continue
		}
		result = append(result, dto.EffectivePolicy{
			PolicyKey:        d.Document.PolicyKey,
			Title:            d.Document.Title,
			VersionLabel:     current.Version,
			Content:          current.ContentMarkdown,
			EffectiveDate:    current.EffectiveTime().Format(entity.EffectiveDateLayout),
			IsTenantSpecific: d.Document.IsTenantSpecific(),
		})
	}
	return result
}
