// Package analysis post-processes recorded metric series.
//
//   - [FFT] and [PowerSpectrum]: radix-2 spectrum of a sampled series
//   - [DominantFrequency]: strongest oscillation, e.g. a soft body breathing
//     against its pressure term
//   - [SettlingTime]: when a series stops moving away from its final value
//
// The series usually come from storage.Store.LoadSeries:
//
//	times, series, _ := store.LoadSeries(id)
//	f, _ := analysis.DominantFrequency(series["volume_ratio"], times[1]-times[0])
package analysis
