package utils

import "sort"

// NextFreeID возвращает наименьшее положительное число, которого нет в used
func NextFreeID(used []int64) int64 {
	ids := make([]int64, 0, len(used))
	for _, id := range used {
		if id > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	next := int64(1)
	for _, id := range ids {
		if id < next {
			// дубликат
			continue
		}
		if id != next {
			break
		}
		next++
	}

	return next
}
