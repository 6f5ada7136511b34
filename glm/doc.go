/*
Package glm implements the loss functions used to fit penalized generalized
linear models: the Gaussian (quadratic), binomial (logistic), Poisson and
multinomial families, together with their links, variance functions, IRLS
working weights, Fenchel duals and deviances.

Responses and linear predictors are stored by column, as [][]float64 with one
column per linear predictor.  All losses are averaged over observations.
*/
package glm
