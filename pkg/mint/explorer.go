package mint

import "fmt"

const explorerBaseURL = "https://explorer.solana.com"

// ClusterMainnet is the cluster name that needs no explorer query parameter.
const ClusterMainnet = "mainnet-beta"

// ExplorerTxURL returns the explorer link for a transaction signature.
func ExplorerTxURL(signature, cluster string) string {
	return fmt.Sprintf("%s/tx/%s%s", explorerBaseURL, signature, clusterQuery(cluster))
}

// ExplorerAddressURL returns the explorer link for an account address.
func ExplorerAddressURL(address, cluster string) string {
	return fmt.Sprintf("%s/address/%s%s", explorerBaseURL, address, clusterQuery(cluster))
}

func clusterQuery(cluster string) string {
	if cluster == "" || cluster == ClusterMainnet {
		return ""
	}
	return "?cluster=" + cluster
}
