// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

// Cluster groups items into clusters based on a distance threshold in meters.
// An item joins the first open cluster that has any member within the
// threshold. Input order is preserved inside each cluster.
func Cluster[T any](items []T, pointOf func(T) Point, distanceThreshold float64) [][]T {
	clusters := make([][]T, 0, len(items))

	visited := make([]bool, len(items))

	for i, it1 := range items {
		if visited[i] {
			continue
		}

		cluster := []T{it1}
		visited[i] = true

		for j, it2 := range items {
			if visited[j] {
				continue
			}

			p2 := pointOf(it2)

			// Check distance against all members of the current cluster
			for _, member := range cluster {
				p1 := pointOf(member)
				if p2.HaversineDistance(&p1) <= distanceThreshold {
					cluster = append(cluster, it2)
					visited[j] = true

					break // Move to next item once it's added to the cluster
				}
			}
		}

		clusters = append(clusters, cluster)
	}

	return clusters
}
