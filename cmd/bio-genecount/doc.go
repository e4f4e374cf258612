/*
Given a gene annotation (GTF) and aligned RNA-seq reads (BAM or SAM),
bio-genecount reports the number of read units assigned to each gene.  A read
unit is a single-end read, or the two mates of a pair.  This command is
similar to "htseq-count".

Each unit is first checked for alignment, uniqueness, duplication and mapping
quality.  Units that pass are compared against the exons of the annotation:
in "union" mode a gene qualifies if any aligned block of the unit overlaps one
of its exons; in "strict" mode every block must lie within the gene's exons.
Units matching exactly one gene are counted for that gene; the rest go to the
no_feature, ambiguous, too_low_aQual, not_aligned and alignment_not_unique
rows at the end of the table.

Sample usage:
bio-genecount \
    -gtf genes.gtf.gz \
    -bam sample.bam \
    -strandness R \
    -out sample.counts.tsv
*/
package main
