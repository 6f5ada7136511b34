/*
Package slope fits generalized linear models penalized by the sorted L1
norm (SLOPE).

The penalty is alpha * sum_i lambda_i |beta|_(i), where |beta|_(1) >=
|beta|_(2) >= ... are the coefficient magnitudes in decreasing order and
lambda is a non-increasing, non-negative sequence.  Coefficients with equal
magnitude form clusters, which the default hybrid solver exploits by
alternating proximal gradient steps with coordinate descent over clusters.

Fit computes a single solution, FitPath a warm-started path over a
decreasing sequence of alpha values, and CrossValidate selects alpha and
the auxiliary parameters q and gamma by repeated k-fold cross-validation.
Designs are dense (column slices) or sparse (compressed column), and are
centered and scaled implicitly, so sparse designs are never densified.
*/
package slope
